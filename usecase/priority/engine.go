// Package priority converts category weight, user weight and time left into
// a 0-100 urgency score.
package priority

import (
	"math"
	"time"
)

const (
	DefaultTimeSensitivity = 2.5
	DefaultCategoryShare   = 0.6
	DefaultUserShare       = 0.4

	// MinHoursLeft keeps ln(h+1) positive for overdue and near-due tasks.
	MinHoursLeft = 0.1

	// MinUserWeight and MaxUserWeight bound the weight a user may assign.
	MinUserWeight = 1
	MaxUserWeight = 5

	// DefaultUserWeight stands in when an update recomputes without a weight.
	DefaultUserWeight = 3

	maxCategoryWeight = 4.0
	maxUserWeight     = 5.0

	// MaxScore is the upper clamp of Score; the lower clamp is zero.
	MaxScore = 100
)

// Config tunes how the signals combine into a score.
type Config struct {
	TimeSensitivity float64
	CategoryShare   float64
	UserShare       float64
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		TimeSensitivity: DefaultTimeSensitivity,
		CategoryShare:   DefaultCategoryShare,
		UserShare:       DefaultUserShare,
	}
}

// Engine is a pure scorer; it holds no state besides its configuration.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling unset weights with defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TimeSensitivity <= 0 {
		cfg.TimeSensitivity = def.TimeSensitivity
	}
	if cfg.CategoryShare <= 0 && cfg.UserShare <= 0 {
		cfg.CategoryShare = def.CategoryShare
		cfg.UserShare = def.UserShare
	}
	return &Engine{cfg: cfg}
}

// Raw evaluates the formula without clamping. With high weights and little
// time left it exceeds MaxScore; callers that persist a score use Score.
func (e *Engine) Raw(categoryWeight, userWeight int, dueAt, now time.Time) int {
	nc := float64(categoryWeight) / maxCategoryWeight
	nu := float64(userWeight) / maxUserWeight

	hours := math.Max(dueAt.Sub(now).Hours(), MinHoursLeft)
	timeFactor := 1 + e.cfg.TimeSensitivity/math.Log(hours+1)

	base := (nc*e.cfg.CategoryShare + nu*e.cfg.UserShare) / (e.cfg.CategoryShare + e.cfg.UserShare)

	// math.Round rounds half away from zero.
	return int(math.Round(base * timeFactor * 100))
}

// Score is Raw clamped to [0, MaxScore].
func (e *Engine) Score(categoryWeight, userWeight int, dueAt, now time.Time) int {
	raw := e.Raw(categoryWeight, userWeight, dueAt, now)
	switch {
	case raw < 0:
		return 0
	case raw > MaxScore:
		return MaxScore
	default:
		return raw
	}
}

// ValidUserWeight reports whether weight lies in [MinUserWeight, MaxUserWeight].
func ValidUserWeight(weight int) bool {
	return weight >= MinUserWeight && weight <= MaxUserWeight
}
