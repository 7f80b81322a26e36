package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

func TestParseTime(t *testing.T) {
	for input, want := range map[string]time.Time{
		"2024-05-01T10:30:00Z":      time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		"2024-05-01T12:30:00+02:00": time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		"2024-05-01T10:30":          time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		"2024-05-01":                time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	} {
		got, err := ParseTime(input)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(got), "%s: got %s", input, got)
	}

	_, err := ParseTime("next tuesday")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
