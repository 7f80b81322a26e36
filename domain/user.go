package domain

import "time"

// User represents a registered identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is a user together with the tasks they follow.
type Profile struct {
	User
	SubscribedTasks []Task `json:"subscribed_tasks"`
}
