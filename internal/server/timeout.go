package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRequestTimeout is the context cause once the request budget is spent.
var ErrRequestTimeout = errors.New("request timeout exceeded")

// TimeoutMiddleware bounds every request context by timeout. Handlers and
// the provider calls below them stop cooperatively; the middleware never
// writes a response itself, so an open event stream ends with its own
// error event.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeoutCause(r.Context(), timeout, ErrRequestTimeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
