package push

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/usecase"
)

// CommandHandler handles one client frame type and returns the reply frame.
type CommandHandler func(ctx context.Context, sessionID string, frame ClientFrame) (event string, reply any, err error)

// Commands dispatches client frames by type.
type Commands struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandler
}

func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]CommandHandler)}
}

func (c *Commands) Register(frameType string, handler CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[frameType] = handler
}

func (c *Commands) Execute(ctx context.Context, sessionID string, frame ClientFrame) (string, any, error) {
	c.mu.RLock()
	handler, ok := c.handlers[frame.Type]
	c.mu.RUnlock()
	if !ok {
		return "", nil, domain.Invalid(fmt.Sprintf("unknown frame type %q", frame.Type))
	}
	return handler(ctx, sessionID, frame)
}

// GroupAck confirms a join or leave.
type GroupAck struct {
	TaskID string `json:"task_id"`
	Group  string `json:"group"`
}

// SessionCommands wires join, leave and ping to a push channel.
func SessionCommands(channel usecase.PushChannel) *Commands {
	commands := NewCommands()
	commands.Register("join", func(ctx context.Context, sessionID string, frame ClientFrame) (string, any, error) {
		if frame.TaskID == "" {
			return "", nil, domain.Invalid("task_id is required")
		}
		group := domain.TaskGroup(frame.TaskID)
		if err := channel.JoinGroup(ctx, sessionID, group); err != nil {
			return "", nil, err
		}
		return FrameJoined, GroupAck{TaskID: frame.TaskID, Group: group}, nil
	})
	commands.Register("leave", func(ctx context.Context, sessionID string, frame ClientFrame) (string, any, error) {
		if frame.TaskID == "" {
			return "", nil, domain.Invalid("task_id is required")
		}
		group := domain.TaskGroup(frame.TaskID)
		if err := channel.LeaveGroup(ctx, sessionID, group); err != nil {
			return "", nil, err
		}
		return FrameLeft, GroupAck{TaskID: frame.TaskID, Group: group}, nil
	})
	commands.Register("ping", func(context.Context, string, ClientFrame) (string, any, error) {
		return FramePong, nil, nil
	})
	return commands
}
