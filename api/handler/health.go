package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

// StatusSource is satisfied by *monitor.Monitor.
type StatusSource interface {
	GetStatus() monitor.Status
}

// relayOpen is the breaker state in which events only reach local sessions.
const relayOpen = "open"

type dependencyHealth struct {
	Up bool `json:"up"`
}

type relayHealth struct {
	Backend  string `json:"backend"`
	Breaker  string `json:"breaker"`
	Sessions int    `json:"sessions"`
}

// HealthReport is the body of GET /health. Online covers the stores every
// write goes through; an open relay breaker only marks the report degraded.
type HealthReport struct {
	Online    bool             `json:"online"`
	Degraded  bool             `json:"degraded"`
	CheckedAt time.Time        `json:"checked_at"`
	Tasks     dependencyHealth `json:"tasks_store"`
	Sessions  dependencyHealth `json:"session_store"`
	Relay     relayHealth      `json:"push_relay"`
}

type HealthHandler struct {
	baseHandler
	source StatusSource
	relay  string
}

// NewHealthHandler reports on source; relay names the configured push backend.
func NewHealthHandler(source StatusSource, relay string, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		source:      source,
		relay:       relay,
	}
}

func (h *HealthHandler) report() HealthReport {
	status := h.source.GetStatus()
	report := HealthReport{
		Online:    status.PostgreSQL && status.Redis,
		CheckedAt: status.LastCheck,
		Tasks:     dependencyHealth{Up: status.PostgreSQL},
		Sessions:  dependencyHealth{Up: status.Redis},
		Relay: relayHealth{
			Backend:  h.relay,
			Breaker:  status.PushState,
			Sessions: status.PushSessions,
		},
	}
	report.Degraded = !report.Online || status.PushState == relayOpen
	return report
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	report := h.report()
	if report.Online {
		h.respondSuccess(ctx, http.StatusOK, report)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("OFFLINE", "task or session store unreachable", report))
}
