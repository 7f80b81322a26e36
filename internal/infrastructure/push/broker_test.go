package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

type failingRelay struct{ calls int }

func (r *failingRelay) Publish(context.Context, Envelope) error {
	r.calls++
	return errors.New("relay unavailable")
}

func (r *failingRelay) Subscribe(context.Context, func(Envelope)) error { return nil }

func (r *failingRelay) Close() error { return nil }

func decode(t *testing.T, raw string) Frame {
	t.Helper()
	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	return frame
}

func TestBroker_DeliversThroughRelay(t *testing.T) {
	hub := NewHub(8)
	broker := NewBroker(hub, NewLocalRelay(), BreakerConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, broker.Start(ctx))
	t.Cleanup(func() { _ = broker.Stop(ctx) })

	viewer := hub.Register()
	bystander := hub.Register()
	group := domain.TaskGroup("42")
	require.NoError(t, broker.JoinGroup(ctx, viewer.ID, group))

	require.NoError(t, broker.BroadcastAll(ctx, domain.EventTaskCreated, map[string]string{"id": "42"}))
	require.NoError(t, broker.BroadcastGroup(ctx, group, domain.EventTaskDeleted, domain.TaskRemoval{TaskID: "42"}))

	viewerFrames := drain(viewer)
	require.Len(t, viewerFrames, 2)
	assert.Equal(t, domain.EventTaskCreated, decode(t, viewerFrames[0]).Event)

	deleted := decode(t, viewerFrames[1])
	assert.Equal(t, domain.EventTaskDeleted, deleted.Event)
	assert.JSONEq(t, `{"task_id":"42"}`, string(deleted.Payload))

	bystanderFrames := drain(bystander)
	require.Len(t, bystanderFrames, 1)
	assert.Equal(t, domain.EventTaskCreated, decode(t, bystanderFrames[0]).Event)

	t.Run("leaving stops group delivery", func(t *testing.T) {
		require.NoError(t, broker.LeaveGroup(ctx, viewer.ID, group))
		require.NoError(t, broker.BroadcastGroup(ctx, group, domain.EventTaskUpdated, nil))
		assert.Empty(t, drain(viewer))
	})

	assert.Equal(t, 2, broker.Sessions())
	assert.Equal(t, "closed", broker.State())
}

func TestBroker_BreakerOpensOnRelayFailures(t *testing.T) {
	relay := &failingRelay{}
	broker := NewBroker(NewHub(8), relay, BreakerConfig{FailureThreshold: 3, Timeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, broker.BroadcastAll(ctx, domain.EventTaskCreated, nil))
	}
	assert.Equal(t, "open", broker.State())

	err := broker.BroadcastAll(ctx, domain.EventTaskCreated, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, relay.calls)
}

func TestBroker_StopClosesSessions(t *testing.T) {
	hub := NewHub(8)
	broker := NewBroker(hub, NewLocalRelay(), BreakerConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, broker.Start(ctx))

	session := hub.Register()
	require.NoError(t, broker.Stop(ctx))

	_, open := <-session.Outbound()
	assert.False(t, open)
	assert.ErrorIs(t, broker.BroadcastAll(ctx, domain.EventTaskCreated, nil), ErrRelayClosed)
}
