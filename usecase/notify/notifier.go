// Package notify turns task mutation outcomes into push events and picks
// their audience: creations go to every session, everything else only to the
// task's push group.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/usecase"
)

const (
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

// Config controls the delivery queue.
type Config struct {
	QueueSize int
	Timeout   time.Duration
}

type message struct {
	group   string // empty means every session
	event   string
	payload any
}

// Notifier delivers events from a single worker goroutine. Enqueueing never
// blocks: when the queue is full the event is dropped and logged.
type Notifier struct {
	push    usecase.PushChannel
	logger  *zap.Logger
	cfg     Config
	queue   chan message
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

var _ usecase.ChangeNotifier = (*Notifier)(nil)

func New(push usecase.PushChannel, cfg Config, logger *zap.Logger) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		push:    push,
		logger:  logger,
		cfg:     cfg,
		queue:   make(chan message, cfg.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (n *Notifier) Start() {
	n.startOnce.Do(func() {
		go n.run()
		n.logger.Info("change notifier started")
	})
}

// Stop delivers what is already queued and waits for the worker, or for ctx.
func (n *Notifier) Stop(ctx context.Context) {
	n.stopOnce.Do(func() { close(n.done) })

	// never started: nothing to wait for
	n.startOnce.Do(func() { close(n.stopped) })
	select {
	case <-n.stopped:
		n.logger.Info("change notifier stopped")
	case <-ctx.Done():
		n.logger.Warn("change notifier stop timed out", zap.Error(ctx.Err()))
	}
}

func (n *Notifier) TaskCreated(task domain.Task) {
	n.enqueue(message{event: domain.EventTaskCreated, payload: task})
}

func (n *Notifier) TaskUpdated(task domain.Task) {
	n.enqueue(message{group: domain.TaskGroup(task.ID), event: domain.EventTaskUpdated, payload: task})
}

func (n *Notifier) TaskStateChanged(taskID string, status domain.TaskStatus) {
	n.enqueue(message{
		group:   domain.TaskGroup(taskID),
		event:   domain.EventTaskStateChanged,
		payload: domain.TaskStateChange{TaskID: taskID, Status: status},
	})
}

func (n *Notifier) TaskDeleted(taskID string) {
	n.enqueue(message{
		group:   domain.TaskGroup(taskID),
		event:   domain.EventTaskDeleted,
		payload: domain.TaskRemoval{TaskID: taskID},
	})
}

func (n *Notifier) enqueue(msg message) {
	select {
	case <-n.done:
		n.logger.Warn("change notifier stopped, event dropped", zap.String("event", msg.event))
		return
	default:
	}

	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("change notifier queue full, event dropped",
			zap.String("event", msg.event),
			zap.String("group", msg.group))
	}
}

func (n *Notifier) run() {
	defer close(n.stopped)
	for {
		select {
		case msg := <-n.queue:
			n.deliver(msg)
		case <-n.done:
			for {
				select {
				case msg := <-n.queue:
					n.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) deliver(msg message) {
	if n.push == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
	defer cancel()

	var err error
	if msg.group == "" {
		err = n.push.BroadcastAll(ctx, msg.event, msg.payload)
	} else {
		err = n.push.BroadcastGroup(ctx, msg.group, msg.event, msg.payload)
	}
	if err != nil {
		n.logger.Warn("push delivery failed",
			zap.String("event", msg.event),
			zap.String("group", msg.group),
			zap.Error(err))
	}
}
