package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelcast/internal/observability/logging"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags every request with an id, honouring one supplied by
// the caller, and stashes a request-scoped logger on the context so downstream
// handlers log with the same id.
func requestIDMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = logging.ContextWithLogger(ctx, logging.WithContext(ctx, logger))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// rand failures are effectively impossible; keep the request traceable anyway.
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(raw[:])
}

// loggerWithRequestContext prefers the logger installed by the request-id
// middleware, falling back to annotating the provided one.
func loggerWithRequestContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if scoped := logging.LoggerFromContext(ctx); scoped != nil {
		return scoped
	}
	return logging.WithContext(ctx, logger)
}
