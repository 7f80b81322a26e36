package domain

import "time"

// Subscription records that a user wants notifications about a task.
// (UserID, TaskID) is unique.
type Subscription struct {
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscriber is the read model of a subscription as rendered on a task.
type Subscriber struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
