package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_DerivedFlags(t *testing.T) {
	tests := []struct {
		name                    string
		start, end              time.Time
		past, current, upcoming bool
	}{
		{name: "running", start: now.Add(-time.Hour), end: now.Add(time.Hour), current: true},
		{name: "finished", start: now.Add(-2 * time.Hour), end: now.Add(-time.Hour), past: true},
		{name: "later", start: now.Add(time.Hour), end: now.Add(2 * time.Hour), upcoming: true},
		{name: "starts now", start: now, end: now.Add(time.Hour), current: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{StartTime: tt.start, EndTime: tt.end}
			assert.Equal(t, tt.past, e.IsPast(now))
			assert.Equal(t, tt.current, e.IsCurrent(now))
			assert.Equal(t, tt.upcoming, e.IsUpcoming(now))
			assert.Equal(t, tt.end.Sub(tt.start), e.Duration())
		})
	}
}

func TestEvent_ValidTimeRange(t *testing.T) {
	assert.True(t, Event{StartTime: now, EndTime: now.Add(time.Second)}.ValidTimeRange())
	assert.False(t, Event{StartTime: now, EndTime: now}.ValidTimeRange())
	assert.False(t, Event{StartTime: now, EndTime: now.Add(-time.Hour)}.ValidTimeRange())
}

func TestReminder_MarkSentIsOneWay(t *testing.T) {
	var r Reminder

	assert.True(t, r.MarkSent(now))
	require.NotNil(t, r.SentAt)
	assert.Equal(t, now, *r.SentAt)

	assert.False(t, r.MarkSent(now.Add(time.Hour)))
	assert.True(t, r.IsSent)
	assert.Equal(t, now, *r.SentAt)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC) // 01:30 on the 11th at UTC+3

	start, end := DayBounds(late, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, EventHoliday.Valid())
	assert.False(t, EventType("party").Valid())
	assert.True(t, ResponseTentative.Valid())
	assert.False(t, ResponseStatus("maybe").Valid())
	assert.True(t, ReminderSMS.Valid())
	assert.False(t, ReminderType("pigeon").Valid())
}
