package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type probe struct{}

func (probe) State() string { return "closed" }
func (probe) Sessions() int { return 2 }

func TestMonitorRefresh(t *testing.T) {
	server := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mon := New(pinger{}, client, probe{}, 0, nil)
	mon.Refresh()

	status := mon.GetStatus()
	assert.True(t, status.PostgreSQL)
	assert.True(t, status.Redis)
	assert.Equal(t, "closed", status.PushState)
	assert.Equal(t, 2, status.PushSessions)
	assert.True(t, mon.IsOnline())
}

func TestMonitorOfflineWhenPostgresFails(t *testing.T) {
	server := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mon := New(pinger{err: errors.New("down")}, client, nil, 0, nil)
	mon.Refresh()

	require.False(t, mon.IsOnline())
	assert.Equal(t, "disabled", mon.GetStatus().PushState)
}

func TestMonitorWithoutDependencies(t *testing.T) {
	mon := New(nil, nil, nil, 0, nil)
	mon.Refresh()
	assert.False(t, mon.IsOnline())

	mon.Stop()
	mon.Stop()
}
