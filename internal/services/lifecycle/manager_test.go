package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type component struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (c component) Start(context.Context) error {
	*c.log = append(*c.log, "start "+c.name)
	return c.startErr
}

func (c component) Stop(context.Context) error {
	*c.log = append(*c.log, "stop "+c.name)
	return c.stopErr
}

func TestShutdownRunsHooksInReverse(t *testing.T) {
	var log []string
	m := New(time.Second, nil)

	require.NoError(t, m.Start(context.Background(), "db", component{name: "db", log: &log}))
	require.NoError(t, m.Start(context.Background(), "broker", component{name: "broker", log: &log}))
	m.Register("server", func(context.Context) error {
		log = append(log, "stop server")
		return nil
	})

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"start db", "start broker", "stop server", "stop broker", "stop db"}, log)

	// hooks run once
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, log, 5)
}

func TestShutdownJoinsErrors(t *testing.T) {
	var log []string
	m := New(time.Second, nil)
	boom := errors.New("boom")

	require.NoError(t, m.Start(context.Background(), "relay", component{name: "relay", stopErr: boom, log: &log}))
	require.NoError(t, m.Start(context.Background(), "hub", component{name: "hub", log: &log}))

	err := m.Shutdown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "relay")
	assert.Equal(t, "stop relay", log[len(log)-1])
}

func TestStartFailureRegistersNothing(t *testing.T) {
	var log []string
	m := New(time.Second, nil)

	err := m.Start(context.Background(), "amqp", component{name: "amqp", startErr: errors.New("dial"), log: &log})
	require.ErrorContains(t, err, "start amqp")

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"start amqp"}, log)
}

func TestShutdownAppliesTimeout(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
