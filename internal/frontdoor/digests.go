package frontdoor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/digest"
	"github.com/tjfontaine/meeting-digest/internal/server"
	"github.com/tjfontaine/meeting-digest/internal/sse"
	"github.com/tjfontaine/meeting-digest/internal/storage"
)

// Error messages returned by the digest endpoints.
const (
	msgTranscriptRequired = "Transcript is required"
	msgInvalidBody        = "Invalid request body"
	msgKeyNotConfigured   = "Google API key not configured"
	msgGenerateFailed     = "Failed to generate digest"
	msgDigestNotFound     = "Digest not found"
	msgFetchDigestFailed  = "Failed to fetch digest"
	msgFetchListFailed    = "Failed to fetch digests"
)

type createDigestRequest struct {
	Transcript string `json:"transcript"`
}

// DigestHandler serves digest creation and lookup.
type DigestHandler struct {
	svc    *digest.Service
	logger *slog.Logger
}

// NewDigestHandler creates a handler over svc.
func NewDigestHandler(svc *digest.Service, logger *slog.Logger) *DigestHandler {
	return &DigestHandler{svc: svc, logger: logger}
}

// Routes returns the digest endpoints.
func (h *DigestHandler) Routes() []HandlerRegistration {
	return []HandlerRegistration{
		{Path: "/digests", Method: http.MethodPost, Handler: h.HandleCreate},
		{Path: "/digests", Method: http.MethodGet, Handler: h.HandleList},
		{Path: "/digests/stream", Method: http.MethodPost, Handler: h.HandleStream},
		{Path: "/digests/{publicId}", Method: http.MethodGet, Handler: h.HandleGet},
	}
}

// HandleCreate generates a digest in one call.
func (h *DigestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	transcript, ok := h.decode(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Create(r.Context(), transcript)
	if err != nil {
		if h.writeValidationError(w, r, err) {
			return
		}
		ce := classify.Classify(err)
		server.AddLogField(r.Context(), "error_code", string(ce.Code))
		server.AddError(r.Context(), err)
		h.logger.Error("failed to generate digest",
			slog.String("request_id", server.GetRequestID(r.Context())),
			slog.String("error_code", string(ce.Code)),
			slog.String("error", err.Error()),
		)
		WriteError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	server.AddLogField(r.Context(), "public_id", d.PublicID)
	WriteJSON(w, http.StatusCreated, d)
}

// HandleStream generates a digest as a server-sent event stream.
func (h *DigestHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	transcript, ok := h.decode(w, r)
	if !ok {
		return
	}

	job, err := h.svc.PrepareStream(r.Context(), transcript)
	if err != nil {
		if h.writeValidationError(w, r, err) {
			return
		}
		server.AddError(r.Context(), err)
		WriteError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	server.AddLogField(r.Context(), "public_id", job.PublicID())
	if job.Mock() {
		server.AddLogField(r.Context(), "provider", "mock")
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		server.AddError(r.Context(), err)
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	if _, err := job.Run(r.Context(), writer); err != nil {
		server.AddLogField(r.Context(), "error_code", string(classify.Classify(err).Code))
		server.AddError(r.Context(), err)
	}
}

// HandleList returns digests newest first. Optional limit and offset query
// parameters page the result.
func (h *DigestHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	digests, err := h.svc.Store().ListDigests(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		WriteError(w, http.StatusInternalServerError, msgFetchListFailed)
		return
	}
	WriteJSON(w, http.StatusOK, digests)
}

// HandleGet returns one digest by public id.
func (h *DigestHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicId")
	d, err := h.svc.Store().GetDigestByPublicID(r.Context(), publicID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, msgDigestNotFound)
	case err != nil:
		server.AddError(r.Context(), err)
		WriteError(w, http.StatusInternalServerError, msgFetchDigestFailed)
	default:
		WriteJSON(w, http.StatusOK, d)
	}
}

func (h *DigestHandler) decode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req createDigestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.AddError(r.Context(), err)
		WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return "", false
	}
	return req.Transcript, true
}

// writeValidationError handles failures that happen before generation.
func (h *DigestHandler) writeValidationError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, digest.ErrTranscriptRequired):
		WriteError(w, http.StatusBadRequest, msgTranscriptRequired)
	case errors.Is(err, digest.ErrTranscriptTooLong):
		WriteError(w, http.StatusBadRequest, "Transcript is too long")
	case errors.Is(err, digest.ErrCredentialMissing):
		WriteError(w, http.StatusInternalServerError, msgKeyNotConfigured)
	default:
		return false
	}
	server.AddError(r.Context(), err)
	return true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
