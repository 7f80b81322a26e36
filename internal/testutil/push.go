package testutil

import (
	"context"
	"sync"
)

// PushCall is one recorded push channel invocation. Group is empty for
// broadcasts to every session.
type PushCall struct {
	Group   string
	Event   string
	Payload any
}

// RecordingPush is a PushChannel that remembers what it was asked to send.
type RecordingPush struct {
	mu      sync.Mutex
	calls   []PushCall
	members map[string]map[string]bool

	// Err, when set, is returned by every broadcast after recording it.
	Err error
}

func NewRecordingPush() *RecordingPush {
	return &RecordingPush{members: make(map[string]map[string]bool)}
}

func (p *RecordingPush) BroadcastAll(_ context.Context, event string, payload any) error {
	return p.record(PushCall{Event: event, Payload: payload})
}

func (p *RecordingPush) BroadcastGroup(_ context.Context, group, event string, payload any) error {
	return p.record(PushCall{Group: group, Event: event, Payload: payload})
}

func (p *RecordingPush) JoinGroup(_ context.Context, sessionID, group string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[group] == nil {
		p.members[group] = make(map[string]bool)
	}
	p.members[group][sessionID] = true
	return nil
}

func (p *RecordingPush) LeaveGroup(_ context.Context, sessionID, group string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members[group], sessionID)
	return nil
}

func (p *RecordingPush) record(call PushCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.Err
}

// Calls returns a copy of everything recorded so far.
func (p *RecordingPush) Calls() []PushCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PushCall(nil), p.calls...)
}

// Events returns the recorded event names in order.
func (p *RecordingPush) Events() []string {
	calls := p.Calls()
	out := make([]string, len(calls))
	for i, call := range calls {
		out[i] = call.Event
	}
	return out
}

func (p *RecordingPush) IsMember(sessionID, group string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members[group][sessionID]
}
