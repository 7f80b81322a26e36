package domain

// Push event names.
const (
	EventTaskCreated      = "task.created"
	EventTaskUpdated      = "task.updated"
	EventTaskStateChanged = "task.state_changed"
	EventTaskDeleted      = "task.deleted"
)

// TaskStateChange is the payload of EventTaskStateChanged.
type TaskStateChange struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// TaskRemoval is the payload of EventTaskDeleted.
type TaskRemoval struct {
	TaskID string `json:"task_id"`
}
