package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/session"
)

// sessionKey is the context key for the resolved session.
type sessionKey struct{}

// Session resolves the bearer session handle to a live session.
func Session(tokens *session.TokenService, store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				if errors.Is(err, session.ErrTokenExpired) {
					writeUnauthorized(w, r, "session token has expired")
				} else {
					writeUnauthorized(w, r, "invalid session token")
				}
				return
			}

			s, err := store.Get(claims.SessionID)
			if err != nil {
				problem := models.NewNotFound(GetRequestID(r.Context()), "session not found or expired")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}

			annotateSession(r.Context(), s.ID())
			ctx := context.WithValue(r.Context(), sessionKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized writes a 401 problem. The response package imports this
// one, so it cannot be used here.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetSession returns the session resolved by Session, or nil.
func GetSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSessionID returns the ID of the resolved session, or "".
func GetSessionID(ctx context.Context) string {
	if s := GetSession(ctx); s != nil {
		return s.ID()
	}
	return ""
}
