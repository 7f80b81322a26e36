package monitor

import "time"

type Status struct {
	PostgreSQL   bool      `json:"postgresql"`
	Redis        bool      `json:"redis"`
	PushState    string    `json:"push_state"`
	PushSessions int       `json:"push_sessions"`
	LastCheck    time.Time `json:"last_check"`
}
