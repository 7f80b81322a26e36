package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

type fixedStatus monitor.Status

func (s fixedStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealthCheck(t *testing.T) {
	checked := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter := httpcontext.NewAdapter(time.Second)

	cases := map[string]struct {
		status   monitor.Status
		code     int
		online   bool
		degraded bool
	}{
		"all up": {
			status: monitor.Status{PostgreSQL: true, Redis: true, PushState: "closed", PushSessions: 2, LastCheck: checked},
			code:   http.StatusOK, online: true,
		},
		"relay breaker open": {
			status: monitor.Status{PostgreSQL: true, Redis: true, PushState: "open", PushSessions: 2, LastCheck: checked},
			code:   http.StatusOK, online: true, degraded: true,
		},
		"session store down": {
			status: monitor.Status{PostgreSQL: true, PushState: "closed", LastCheck: checked},
			code:   http.StatusServiceUnavailable, degraded: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewHealthHandler(fixedStatus(tc.status), "redis", adapter, nil)

			code, env := call(t, h.Check, "", "", "", nil)
			require.Equal(t, tc.code, code)

			raw := env.Data
			if code != http.StatusOK {
				assert.Equal(t, "OFFLINE", env.Code)
				raw = env.Meta
			}
			var report HealthReport
			require.NoError(t, json.Unmarshal(raw, &report))

			assert.Equal(t, tc.online, report.Online)
			assert.Equal(t, tc.degraded, report.Degraded)
			assert.Equal(t, tc.status.PostgreSQL, report.Tasks.Up)
			assert.Equal(t, tc.status.Redis, report.Sessions.Up)
			assert.Equal(t, "redis", report.Relay.Backend)
			assert.Equal(t, tc.status.PushState, report.Relay.Breaker)
			assert.Equal(t, tc.status.PushSessions, report.Relay.Sessions)
			assert.True(t, checked.Equal(report.CheckedAt))
		})
	}
}
