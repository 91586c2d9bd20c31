package frontdoor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/netcheck"
	"github.com/tjfontaine/meeting-digest/internal/retry"
	"github.com/tjfontaine/meeting-digest/internal/server"
)

// ProviderTestPrompt is the smoke-test prompt.
const ProviderTestPrompt = `Say "Hello from Gemini!"`

// ProviderTestTimeout bounds each smoke-test attempt.
const ProviderTestTimeout = 15 * time.Second

type providerTestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

type validationFailure struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ProviderTestConfig wires the connectivity test.
type ProviderTestConfig struct {
	APIKey    string
	Model     string
	Validator *netcheck.Validator
	// ProviderFor builds the real provider for a key.
	ProviderFor func(apiKey string) (domain.Provider, error)
	Retry       retry.Config
	Sleep       retry.SleepFunc
}

// ProviderTestHandler checks that the configured credential can generate text.
type ProviderTestHandler struct {
	cfg    ProviderTestConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewProviderTestHandler creates the handler.
func NewProviderTestHandler(cfg ProviderTestConfig, logger *slog.Logger) *ProviderTestHandler {
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &ProviderTestHandler{cfg: cfg, logger: logger, now: time.Now}
}

// Routes returns the provider test endpoint.
func (h *ProviderTestHandler) Routes() []HandlerRegistration {
	return []HandlerRegistration{
		{Path: "/provider/test", Method: http.MethodGet, Handler: h.HandleTest},
	}
}

// HandleTest validates the credential, then runs a short generation through
// the retry engine.
func (h *ProviderTestHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.Info("testing provider connection")

	if h.cfg.APIKey == "" {
		WriteError(w, http.StatusInternalServerError, "Google API key not configured or empty")
		return
	}

	if v := h.cfg.Validator.Validate(ctx, h.cfg.APIKey); !v.IsValid {
		server.AddLogField(ctx, "validation_error", v.Error)
		WriteJSON(w, http.StatusInternalServerError, validationFailure{Error: "API validation failed", Details: v.Error})
		return
	}

	p, err := h.cfg.ProviderFor(h.cfg.APIKey)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	text, err := retry.Do(ctx, h.cfg.Retry, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, ProviderTestTimeout)
		defer cancel()
		return p.Generate(ctx, &domain.GenerationRequest{Prompt: ProviderTestPrompt, Model: h.cfg.Model})
	}, retry.WithSleep(h.cfg.Sleep), retry.WithLogger(h.logger))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if text == "" {
		text = "No response"
	}

	h.logger.Info("provider response received successfully")
	WriteJSON(w, http.StatusOK, providerTestResponse{
		Success:   true,
		Message:   "GenAI connection successful",
		Response:  text,
		Timestamp: timestamp(h.now()),
	})
}

func (h *ProviderTestHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	ce := classify.Classify(err)
	server.AddLogField(r.Context(), "error_code", string(ce.Code))
	server.AddError(r.Context(), err)
	h.logger.Error("provider test failed",
		slog.String("error_code", string(ce.Code)),
		slog.String("error", err.Error()),
	)
	WriteClassifiedError(w, ce, h.now())
}
