package frontdoor

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/diagnostics"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/server"
)

// Diagnostics actions.
const (
	ActionRun        = "run"
	ActionStartTimer = "start-timer"
	ActionStopTimer  = "stop-timer"
	ActionStatus     = "status"
)

type diagnosticsResponse struct {
	Success        bool                       `json:"success"`
	Message        string                     `json:"message,omitempty"`
	Diagnostics    *domain.NetworkDiagnostics `json:"diagnostics,omitempty"`
	Report         string                     `json:"report,omitempty"`
	IsTimerRunning bool                       `json:"isTimerRunning"`
	LastRun        *time.Time                 `json:"lastRun"`
	Timestamp      string                     `json:"timestamp"`
}

// DiagnosticsHandler runs diagnostics and controls the scheduler.
type DiagnosticsHandler struct {
	scheduler *diagnostics.Scheduler
	apiKey    string
	logger    *slog.Logger
	now       func() time.Time
}

// NewDiagnosticsHandler creates a handler. apiKey is the configured
// credential, which may be empty.
func NewDiagnosticsHandler(scheduler *diagnostics.Scheduler, apiKey string, logger *slog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		scheduler: scheduler,
		apiKey:    apiKey,
		logger:    logger,
		now:       time.Now,
	}
}

// Routes returns the diagnostics endpoint.
func (h *DiagnosticsHandler) Routes() []HandlerRegistration {
	return []HandlerRegistration{
		{Path: "/diagnostics", Method: http.MethodGet, Handler: h.HandleDiagnostics},
	}
}

// HandleDiagnostics dispatches on ?action=run|start-timer|stop-timer|status.
// A missing or unknown action runs one pass.
func (h *DiagnosticsHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	server.AddLogField(r.Context(), "action", action)

	switch action {
	case ActionStartTimer:
		h.scheduler.Start(h.apiKey)
		resp := h.statusResponse()
		resp.Message = "Diagnostics timer started (runs every " + formatInterval(h.scheduler.Interval()) + ")"
		WriteJSON(w, http.StatusOK, resp)

	case ActionStopTimer:
		h.scheduler.Stop()
		resp := h.statusResponse()
		resp.Message = "Diagnostics timer stopped"
		WriteJSON(w, http.StatusOK, resp)

	case ActionStatus:
		WriteJSON(w, http.StatusOK, h.statusResponse())

	default:
		diag := h.scheduler.RunOnce(r.Context(), h.apiKey)
		report := diagnostics.FormatReport(diag)
		h.logger.Info("network diagnostics completed",
			slog.Bool("overall", diag.Overall),
			slog.String("report", report),
		)
		resp := h.statusResponse()
		resp.Success = diag.Overall
		resp.Diagnostics = &diag
		resp.Report = report
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *DiagnosticsHandler) statusResponse() diagnosticsResponse {
	st := h.scheduler.Status()
	return diagnosticsResponse{
		Success:        true,
		IsTimerRunning: st.Running,
		LastRun:        st.LastRun,
		Timestamp:      timestamp(h.now()),
	}
}

func formatInterval(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return strconv.Itoa(hours) + " hours"
	}
	return d.String()
}
