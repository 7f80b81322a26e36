package domain

import "time"

const (
	MinCategoryWeight = 1
	MaxCategoryWeight = 4
)

// Category groups tasks and carries the importance weight used for scoring.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Weight    int       `json:"weight"`
	TaskCount int       `json:"task_count"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidCategoryWeight(weight int) bool {
	return weight >= MinCategoryWeight && weight <= MaxCategoryWeight
}
