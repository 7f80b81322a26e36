package push

import (
	"context"
	"errors"
	"sync"
)

// Relay moves envelopes between instances. Subscribe returns once the
// subscription is live and delivers until ctx is cancelled.
type Relay interface {
	Publish(ctx context.Context, envelope Envelope) error
	Subscribe(ctx context.Context, handler func(Envelope)) error
	Close() error
}

var ErrRelayClosed = errors.New("push relay closed")

// LocalRelay hands envelopes straight to the subscribers of this process.
type LocalRelay struct {
	mu       sync.RWMutex
	handlers map[int]func(Envelope)
	next     int
	closed   bool
}

func NewLocalRelay() *LocalRelay {
	return &LocalRelay{handlers: make(map[int]func(Envelope))}
}

func (r *LocalRelay) Publish(_ context.Context, envelope Envelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRelayClosed
	}
	for _, handler := range r.handlers {
		handler(envelope)
	}
	return nil
}

func (r *LocalRelay) Subscribe(ctx context.Context, handler func(Envelope)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}
	id := r.next
	r.next++
	r.handlers[id] = handler

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}()
	return nil
}

func (r *LocalRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.handlers = make(map[int]func(Envelope))
	return nil
}
