package push

import "encoding/json"

// Envelope is what travels through a Relay. An empty Group addresses every
// session.
type Envelope struct {
	Event   string          `json:"event"`
	Group   string          `json:"group,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Frame is what a websocket client receives.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ClientFrame is what a websocket client sends.
type ClientFrame struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
}

// Server frames that are not task events.
const (
	FrameSession = "session"
	FrameJoined  = "joined"
	FrameLeft    = "left"
	FramePong    = "pong"
	FrameError   = "error"
)

// EncodeFrame renders a frame with an already marshalled payload.
func EncodeFrame(event string, payload json.RawMessage) ([]byte, error) {
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return json.Marshal(Frame{Event: event, Payload: payload})
}

// NewFrame marshals payload and renders the frame.
func NewFrame(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(event, raw)
}
