package domain

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusIncomplete TaskStatus = "Incomplete"
	StatusInProgress TaskStatus = "InProgress"
	StatusCompleted  TaskStatus = "Completed"
)

var taskStatuses = []TaskStatus{StatusIncomplete, StatusInProgress, StatusCompleted}

// ParseTaskStatus resolves a status name case-insensitively.
func ParseTaskStatus(value string) (TaskStatus, error) {
	value = strings.TrimSpace(value)
	for _, status := range taskStatuses {
		if strings.EqualFold(value, string(status)) {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s TaskStatus) Valid() bool {
	for _, status := range taskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Task is a unit of work whose priority is derived from its category weight,
// the user-assigned weight and the time left until it is due.
type Task struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	DueAt          time.Time    `json:"due_date"`
	Priority       int          `json:"priority"`
	UserWeight     int          `json:"user_weight"`
	CategoryID     string       `json:"category_id"`
	CategoryName   string       `json:"category_name,omitempty"`
	CategoryWeight int          `json:"-"`
	Status         TaskStatus   `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Subscribers    []Subscriber `json:"subscribers"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// SetStatus keeps CompletedAt in step with the status: it is set exactly when
// the task is completed.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	if status == StatusCompleted {
		completed := now
		t.CompletedAt = &completed
		return
	}
	t.CompletedAt = nil
}

// Touch stamps the last modification time.
func (t *Task) Touch(now time.Time) {
	updated := now
	t.UpdatedAt = &updated
}

// TaskGroup returns the push group key that carries updates for a task.
func TaskGroup(taskID string) string {
	return "task:" + taskID
}
