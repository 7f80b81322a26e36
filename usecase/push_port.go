package usecase

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// PushChannel abstracts the realtime transport so use cases stay
// transport-agnostic. Group keys come from domain.TaskGroup.
type PushChannel interface {
	BroadcastAll(ctx context.Context, event string, payload any) error
	BroadcastGroup(ctx context.Context, group, event string, payload any) error
	JoinGroup(ctx context.Context, sessionID, group string) error
	LeaveGroup(ctx context.Context, sessionID, group string) error
}

// ChangeNotifier receives the outcome of task mutations. Calls must not block
// the caller and must not report delivery failures back to it.
type ChangeNotifier interface {
	TaskCreated(task domain.Task)
	TaskUpdated(task domain.Task)
	TaskStateChanged(taskID string, status domain.TaskStatus)
	TaskDeleted(taskID string)
}
