package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/internal/model"
)

func TestNextOccurrenceWeekly(t *testing.T) {
	prev := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 5, 9, 0, 30, 0, time.UTC)

	next, err := nextOccurrence(model.RecurrenceWeekly, prev, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceSkipsMissedRuns(t *testing.T) {
	// 停机三周后补跑：跳过错过的场次，直接排到 now 之后的第一次
	prev := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)

	next, err := nextOccurrence(model.RecurrenceWeekly, prev, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceDaily(t *testing.T) {
	prev := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 20, 0, 5, 0, time.UTC)

	next, err := nextOccurrence(model.RecurrenceDaily, prev, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 2, 20, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceUnknownPattern(t *testing.T) {
	_, err := nextOccurrence(model.RecurrencePattern("hourly"), time.Now(), time.Now())
	assert.Error(t, err)
}
