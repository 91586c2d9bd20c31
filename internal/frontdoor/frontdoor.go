// Package frontdoor exposes the digest service over HTTP.
//
// Each handler group returns its routes as HandlerRegistrations; cmd/digestd
// mounts them on the server router with Mount.
package frontdoor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// HandlerRegistration binds a handler to a method and path.
type HandlerRegistration struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

// Mount registers every route on r.
func Mount(r chi.Router, regs ...[]HandlerRegistration) {
	for _, group := range regs {
		for _, reg := range group {
			r.MethodFunc(reg.Method, reg.Path, reg.Handler)
		}
	}
}

// ErrorResponse is the JSON error body. Only Error is always present.
type ErrorResponse struct {
	Error     string           `json:"error"`
	Code      domain.ErrorCode `json:"code,omitempty"`
	Details   string           `json:"details,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteClassifiedError writes the full error body for ce using its status code.
func WriteClassifiedError(w http.ResponseWriter, ce *domain.ClassifiedError, now time.Time) {
	WriteJSON(w, ce.HTTPStatusCode(), ErrorResponse{
		Error:     ce.Message,
		Code:      ce.Code,
		Details:   ce.Details,
		Timestamp: timestamp(now),
	})
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
