package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// requestNotes carries values learned deeper in the chain back out to the
// request logger.
type requestNotes struct {
	mu        sync.Mutex
	sessionID string
}

type requestNotesKey struct{}

func annotateSession(ctx context.Context, id string) {
	if n, ok := ctx.Value(requestNotesKey{}).(*requestNotes); ok {
		n.mu.Lock()
		n.sessionID = id
		n.mu.Unlock()
	}
}

func (n *requestNotes) session() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sessionID
}

// Logger returns a middleware that logs each completed request.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			notes := &requestNotes{}
			ctx := context.WithValue(r.Context(), requestNotesKey{}, notes)
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			traceID, spanID := "", ""
			if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event := log.Info()
			if status >= http.StatusInternalServerError {
				event = log.Error()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("session_id", notes.session()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
