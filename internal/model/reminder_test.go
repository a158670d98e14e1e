package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrencePatternNext(t *testing.T) {
	anchor := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // 周一

	tests := []struct {
		pattern RecurrencePattern
		want    time.Time
	}{
		{RecurrenceDaily, time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)},
		{RecurrenceWeekly, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)},
		{RecurrenceMonthly, time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)},
		{RecurrenceYearly, time.Date(2027, 1, 5, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := tt.pattern.Next(anchor)
		require.NoError(t, err, string(tt.pattern))
		assert.Equal(t, tt.want, got, string(tt.pattern))
	}
}

func TestRecurrencePatternNextUnknown(t *testing.T) {
	_, err := RecurrencePattern("hourly").Next(time.Now())
	assert.Error(t, err)
}

func TestRecurrenceMonthlyEndOfMonth(t *testing.T) {
	// AddDate 的标准化行为：1月31日 + 1个月 = 3月3日
	anchor := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	got, err := RecurrenceMonthly.Next(anchor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), got)
}

func TestReminderChannelList(t *testing.T) {
	tests := []struct {
		name     string
		channels string
		want     []Channel
	}{
		{"single", "EMAIL", []Channel{ChannelEmail}},
		{"multiple", "EMAIL,PUSH,IN_APP", []Channel{ChannelEmail, ChannelPush, ChannelInApp}},
		{"skips invalid entries", "EMAIL,SMS,PUSH", []Channel{ChannelEmail, ChannelPush}},
		{"skips empty segments", ",EMAIL,,PUSH,", []Channel{ChannelEmail, ChannelPush}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rem := &Reminder{Channels: tt.channels}
			assert.Equal(t, tt.want, rem.ChannelList())
		})
	}
}
