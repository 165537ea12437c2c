package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Expected schema:
//
//	CREATE TABLE traveller_profiles (
//		session_id   TEXT PRIMARY KEY,
//		name         TEXT NOT NULL,
//		age          TEXT NOT NULL,
//		gender       TEXT NOT NULL,
//		email        TEXT NOT NULL,
//		phone        TEXT NOT NULL,
//		language     TEXT NOT NULL,
//		favorites    JSONB NOT NULL DEFAULT '[]',
//		history      JSONB NOT NULL DEFAULT '[]',
//		completed_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL profile repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save upserts the profile for a session.
func (r *PostgresRepository) Save(ctx context.Context, sessionID string, p UserProfile) error {
	favorites, history, err := encodeLists(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO traveller_profiles (
			session_id, name, age, gender, email, phone, language,
			favorites, history, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			language = EXCLUDED.language,
			favorites = EXCLUDED.favorites,
			history = EXCLUDED.history,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.pool.Exec(ctx, query,
		sessionID, p.Name, p.Age, p.Gender, p.Email, p.Phone, p.Language,
		favorites, history, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Get retrieves the stored profile for a session.
func (r *PostgresRepository) Get(ctx context.Context, sessionID string) (*Record, error) {
	query := `
		SELECT name, age, gender, email, phone, language, favorites, history, completed_at
		FROM traveller_profiles
		WHERE session_id = $1
	`

	var (
		rec       = Record{SessionID: sessionID}
		favorites []byte
		history   []byte
	)

	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&rec.Profile.Name,
		&rec.Profile.Age,
		&rec.Profile.Gender,
		&rec.Profile.Email,
		&rec.Profile.Phone,
		&rec.Profile.Language,
		&favorites,
		&history,
		&rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := decodeLists(&rec.Profile, favorites, history); err != nil {
		return nil, err
	}
	return &rec, nil
}

// encodeLists renders the JSONB columns. Nil lists are stored as [].
func encodeLists(p UserProfile) (favorites, history []byte, err error) {
	fav := p.Favorites
	if fav == nil {
		fav = []string{}
	}
	hist := p.History
	if hist == nil {
		hist = []Trip{}
	}

	if favorites, err = json.Marshal(fav); err != nil {
		return nil, nil, fmt.Errorf("encoding favorites: %w", err)
	}
	if history, err = json.Marshal(hist); err != nil {
		return nil, nil, fmt.Errorf("encoding history: %w", err)
	}
	return favorites, history, nil
}

// decodeLists reads the JSONB columns into p. A NULL or JSON null column
// decodes to an empty list.
func decodeLists(p *UserProfile, favorites, history []byte) error {
	p.Favorites = []string{}
	p.History = []Trip{}

	if len(favorites) > 0 {
		if err := json.Unmarshal(favorites, &p.Favorites); err != nil {
			return fmt.Errorf("decoding favorites: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.History); err != nil {
			return fmt.Errorf("decoding history: %w", err)
		}
	}
	if p.Favorites == nil {
		p.Favorites = []string{}
	}
	if p.History == nil {
		p.History = []Trip{}
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
