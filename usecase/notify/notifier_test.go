package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func startNotifier(t *testing.T, push *testutil.RecordingPush, cfg Config) *Notifier {
	t.Helper()
	n := New(push, cfg, nil)
	n.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		n.Stop(ctx)
	})
	return n
}

func waitForCalls(t *testing.T, push *testutil.RecordingPush, count int) []testutil.PushCall {
	t.Helper()
	require.Eventually(t, func() bool { return len(push.Calls()) >= count }, time.Second, 5*time.Millisecond)
	return push.Calls()
}

func TestNotifier_Audience(t *testing.T) {
	push := testutil.NewRecordingPush()
	n := startNotifier(t, push, Config{})

	task := domain.Task{ID: "t1", Title: "ship"}
	n.TaskCreated(task)
	n.TaskUpdated(task)
	n.TaskStateChanged("t1", domain.StatusCompleted)
	n.TaskDeleted("t1")

	calls := waitForCalls(t, push, 4)

	t.Run("created goes to every session with the full task", func(t *testing.T) {
		assert.Equal(t, testutil.PushCall{Event: domain.EventTaskCreated, Payload: task}, calls[0])
	})

	t.Run("updated goes to the task group with the full task", func(t *testing.T) {
		assert.Equal(t, testutil.PushCall{Group: "task:t1", Event: domain.EventTaskUpdated, Payload: task}, calls[1])
	})

	t.Run("state change carries only id and status", func(t *testing.T) {
		assert.Equal(t, "task:t1", calls[2].Group)
		assert.Equal(t, domain.EventTaskStateChanged, calls[2].Event)
		assert.Equal(t, domain.TaskStateChange{TaskID: "t1", Status: domain.StatusCompleted}, calls[2].Payload)
	})

	t.Run("deletion carries only the id", func(t *testing.T) {
		assert.Equal(t, "task:t1", calls[3].Group)
		assert.Equal(t, domain.EventTaskDeleted, calls[3].Event)
		assert.Equal(t, domain.TaskRemoval{TaskID: "t1"}, calls[3].Payload)
	})
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	push := testutil.NewRecordingPush()
	push.Err = errors.New("relay down")
	n := startNotifier(t, push, Config{})

	n.TaskDeleted("a")
	n.TaskDeleted("b")

	calls := waitForCalls(t, push, 2)
	assert.Equal(t, domain.TaskRemoval{TaskID: "b"}, calls[1].Payload)
}

func TestNotifier_StopDrainsQueue(t *testing.T) {
	push := testutil.NewRecordingPush()
	n := New(push, Config{QueueSize: 8}, nil)

	// queued before the worker runs
	for i := 0; i < 5; i++ {
		n.TaskDeleted("t")
	}
	n.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n.Stop(ctx)

	assert.Len(t, push.Calls(), 5)

	n.TaskDeleted("late")
	assert.Len(t, push.Calls(), 5, "events after stop are dropped")
}

func TestNotifier_FullQueueDrops(t *testing.T) {
	push := testutil.NewRecordingPush()
	n := New(push, Config{QueueSize: 2}, nil)

	for i := 0; i < 5; i++ {
		n.TaskDeleted("t")
	}
	n.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n.Stop(ctx)

	assert.Len(t, push.Calls(), 2)
}

func TestNotifier_StopWithoutStart(t *testing.T) {
	n := New(nil, Config{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n.Stop(ctx)
	n.TaskCreated(domain.Task{ID: "x"})
}
