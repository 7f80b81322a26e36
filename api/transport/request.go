package transport

import (
	"strings"
	"time"

	"github.com/fastygo/taskhub/domain"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	CategoryID  string `json:"category_id"`
	UserWeight  int    `json:"user_weight"`
}

// TaskUpdateRequest is a patch: absent fields stay nil and are left untouched.
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	CategoryID  *string `json:"category_id"`
	UserWeight  *int    `json:"user_weight"`
	Status      *string `json:"status"`
}

type TaskStateRequest struct {
	Status string `json:"status"`
}

type CategoryRequest struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseTime accepts RFC3339 or a zone-less timestamp, which is read as UTC.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, domain.Invalid("due_date must be an RFC3339 timestamp")
}
