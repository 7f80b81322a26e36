package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

func drain(session *Session) []string {
	var out []string
	for {
		select {
		case frame, ok := <-session.Outbound():
			if !ok {
				return out
			}
			out = append(out, string(frame))
		default:
			return out
		}
	}
}

func TestHub_GroupDelivery(t *testing.T) {
	hub := NewHub(8)
	a := hub.Register()
	b := hub.Register()
	c := hub.Register()

	require.NoError(t, hub.Join(a.ID, "task:1"))
	require.NoError(t, hub.Join(b.ID, "task:1"))
	require.NoError(t, hub.Join(b.ID, "task:2"))

	delivered, dropped := hub.Deliver("task:1", []byte("one"))
	assert.Equal(t, 2, delivered)
	assert.Zero(t, dropped)

	delivered, _ = hub.Deliver("", []byte("all"))
	assert.Equal(t, 3, delivered)

	assert.Equal(t, []string{"one", "all"}, drain(a))
	assert.Equal(t, []string{"one", "all"}, drain(b))
	assert.Equal(t, []string{"all"}, drain(c))

	t.Run("unknown group reaches nobody", func(t *testing.T) {
		delivered, dropped := hub.Deliver("task:404", []byte("x"))
		assert.Zero(t, delivered)
		assert.Zero(t, dropped)
	})
}

func TestHub_LeaveAndRemove(t *testing.T) {
	hub := NewHub(8)
	a := hub.Register()
	require.NoError(t, hub.Join(a.ID, "task:1"))
	require.NoError(t, hub.Join(a.ID, "task:2"))

	require.NoError(t, hub.Leave(a.ID, "task:1"))
	assert.Zero(t, hub.GroupSize("task:1"))
	assert.Equal(t, []string{"task:2"}, hub.Groups(a.ID))

	require.NoError(t, hub.Leave(a.ID, "task:never"))

	hub.Remove(a.ID)
	assert.Zero(t, hub.SessionCount())
	assert.Zero(t, hub.GroupSize("task:2"))
	_, open := <-a.Outbound()
	assert.False(t, open)

	assert.ErrorIs(t, hub.Join(a.ID, "task:1"), domain.ErrSessionNotFound)
	assert.ErrorIs(t, hub.Leave(a.ID, "task:1"), domain.ErrSessionNotFound)
	assert.False(t, hub.SendTo(a.ID, []byte("late")))
	hub.Remove(a.ID)
}

func TestHub_ReconnectStartsEmpty(t *testing.T) {
	hub := NewHub(8)
	first := hub.Register()
	require.NoError(t, hub.Join(first.ID, "task:1"))
	hub.Remove(first.ID)

	second := hub.Register()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, hub.Groups(second.ID))

	hub.Deliver("task:1", []byte("update"))
	assert.Empty(t, drain(second))
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := NewHub(2)
	slow := hub.Register()

	for i := 0; i < 2; i++ {
		delivered, dropped := hub.Deliver("", []byte("x"))
		assert.Equal(t, 1, delivered)
		assert.Zero(t, dropped)
	}
	delivered, dropped := hub.Deliver("", []byte("x"))
	assert.Zero(t, delivered)
	assert.Equal(t, 1, dropped)
	assert.Len(t, drain(slow), 2)
}
