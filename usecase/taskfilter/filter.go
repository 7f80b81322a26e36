// Package taskfilter narrows and orders task listings in memory. It applies
// the same rules clients use over pushed data, so server and client agree.
package taskfilter

import (
	"sort"
	"strings"
	"time"

	"github.com/fastygo/taskhub/domain"
)

// SortOrder orders results by priority score.
type SortOrder string

const (
	SortNone       SortOrder = ""
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder accepts asc/ascending and desc/descending in any case.
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SortNone, nil
	case "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return SortNone, domain.Invalid("sort must be asc or desc")
	}
}

// Filter holds optional predicates; all present predicates must match.
// DueFrom and DueTo are compared by calendar day in UTC.
type Filter struct {
	Search  string
	Status  domain.TaskStatus
	DueFrom *time.Time
	DueTo   *time.Time
	Sort    SortOrder
}

// Apply returns the matching tasks in a new slice. Sorting is stable, so
// tasks with equal priority keep their relative order.
func Apply(tasks []domain.Task, filter Filter) []domain.Task {
	query := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if query != "" && !matchesText(task, query) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if !matchesDue(task.DueAt, filter.DueFrom, filter.DueTo) {
			continue
		}
		out = append(out, task)
	}

	switch filter.Sort {
	case SortAscending:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	case SortDescending:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	}
	return out
}

func matchesText(task domain.Task, query string) bool {
	return strings.Contains(strings.ToLower(task.Title), query) ||
		strings.Contains(strings.ToLower(task.Description), query)
}

func matchesDue(due time.Time, from, to *time.Time) bool {
	day := Day(due)
	if from != nil && to != nil && Day(*from).Equal(Day(*to)) {
		return day.Equal(Day(*from))
	}
	if from != nil && day.Before(Day(*from)) {
		return false
	}
	if to != nil && day.After(Day(*to)) {
		return false
	}
	return true
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD bound, also accepting RFC3339 timestamps.
func ParseDay(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		return &day, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		day := Day(ts)
		return &day, nil
	}
	return nil, domain.Invalid("dates must be formatted as YYYY-MM-DD")
}
