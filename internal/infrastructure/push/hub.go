// Package push fans task events out to websocket sessions. Sessions and their
// group memberships live in the local Hub; a Relay carries events between
// instances so every Hub sees every event.
package push

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fastygo/taskhub/domain"
)

const defaultSendBuffer = 64

// Session is one connected client. Outbound frames queue in a bounded buffer
// drained by the connection's writer.
type Session struct {
	ID     string
	send   chan []byte
	groups map[string]struct{}
	closed bool
}

// Outbound yields frames to write. It is closed when the session is removed.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Hub tracks sessions and the groups they joined.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	groups     map[string]map[string]struct{}
	bufferSize int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultSendBuffer
	}
	return &Hub{
		sessions:   make(map[string]*Session),
		groups:     make(map[string]map[string]struct{}),
		bufferSize: bufferSize,
	}
}

// Register opens a session with a fresh id.
func (h *Hub) Register() *Session {
	session := &Session{
		ID:     uuid.NewString(),
		send:   make(chan []byte, h.bufferSize),
		groups: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()
	return session
}

// Remove drops the session and every group membership it held.
func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for group := range session.groups {
		h.removeMember(group, sessionID)
	}
	delete(h.sessions, sessionID)
	session.closed = true
	close(session.send)
}

func (h *Hub) Join(sessionID, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	members := h.groups[group]
	if members == nil {
		members = make(map[string]struct{})
		h.groups[group] = members
	}
	members[sessionID] = struct{}{}
	session.groups[group] = struct{}{}
	return nil
}

// Leave is a no-op for groups the session never joined.
func (h *Hub) Leave(sessionID, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	delete(session.groups, group)
	h.removeMember(group, sessionID)
	return nil
}

func (h *Hub) removeMember(group, sessionID string) {
	members := h.groups[group]
	if members == nil {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Deliver queues data for every session in group, or for every session when
// group is empty. Sessions with a full buffer miss the frame.
func (h *Hub) Deliver(group string, data []byte) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if group == "" {
		for _, session := range h.sessions {
			if enqueue(session, data) {
				delivered++
			} else {
				dropped++
			}
		}
		return delivered, dropped
	}

	for sessionID := range h.groups[group] {
		if enqueue(h.sessions[sessionID], data) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// SendTo queues a frame for a single session.
func (h *Hub) SendTo(sessionID string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return enqueue(h.sessions[sessionID], data)
}

func enqueue(session *Session, data []byte) bool {
	if session == nil || session.closed {
		return false
	}
	select {
	case session.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Groups lists the groups a session is in.
func (h *Hub) Groups(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	session, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(session.groups))
	for group := range session.groups {
		out = append(out, group)
	}
	return out
}

// Close removes every session, closing their outbound channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, session := range h.sessions {
		session.closed = true
		close(session.send)
		delete(h.sessions, id)
	}
	h.groups = make(map[string]map[string]struct{})
}
