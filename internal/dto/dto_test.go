package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestTodoRequest_NullVersusAbsent(t *testing.T) {
	var req TodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"due_date":null,"estimated_duration":"01:00:00","priority":"high"}`), &req))
	in := req.Input()

	assert.False(t, in.Title.Set)
	assert.True(t, in.DueDate.Set)
	assert.Nil(t, in.DueDate.Value)
	require.True(t, in.EstimatedDuration.Set)
	require.NotNil(t, in.EstimatedDuration.Value)
	assert.Equal(t, time.Hour, *in.EstimatedDuration.Value)
	assert.False(t, in.ActualDuration.Set)
	assert.Equal(t, dom.Some(dom.PriorityHigh), in.Priority)
}

func TestTodoRequest_ClearDuration(t *testing.T) {
	var req TodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"actual_duration":null}`), &req))
	in := req.Input()
	assert.True(t, in.ActualDuration.Set)
	assert.Nil(t, in.ActualDuration.Value)
}

func TestCategoryRequest_Color(t *testing.T) {
	_, err := CategoryRequest{Color: dom.Some("#00ff00")}.Input()
	assert.NoError(t, err)
	_, err = CategoryRequest{Color: dom.Some("#0f0")}.Input()
	assert.NoError(t, err)

	_, err = CategoryRequest{Color: dom.Some("green")}.Input()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "color")

	_, err = CalendarRequest{Color: dom.Some("#00ff00ff")}.Input()
	assert.Error(t, err)
}

func TestEventRequest_NullStartIsAbsent(t *testing.T) {
	var req EventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"start_time":null,"end_time":"2026-03-11T10:00:00Z"}`), &req))
	in, err := req.Input()
	require.NoError(t, err)
	assert.False(t, in.StartTime.Set)
	assert.True(t, in.EndTime.Set)
	assert.Equal(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC), in.EndTime.Value)
}

func TestProfileRequest_Limits(t *testing.T) {
	long := string(make([]byte, 151))
	_, err := ProfileRequest{Username: dom.Some(long)}.Input()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "username")

	var req ProfileRequest
	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":"1990-05-17","bio":"hi"}`), &req))
	p, err := req.Input()
	require.NoError(t, err)
	require.NotNil(t, p.BirthDate.Value)
	assert.Equal(t, 1990, p.BirthDate.Value.Year())
	assert.False(t, p.Username.Set)
}

func TestNewTodoDetailResponse(t *testing.T) {
	due := now.Add(-time.Hour)
	est, act := int64(3600), int64(5400)
	d := dom.TodoDetail{
		Todo: dom.Todo{
			ID: 1, Title: "Report", Priority: dom.PriorityHigh, DueDate: &due,
			EstimatedSeconds: &est, ActualSeconds: &act,
		},
		Category:    &dom.Category{ID: 3, Name: "Work", Color: "#ff0000", TodoCount: 1},
		Comments:    []dom.TodoComment{{ID: 9, UserID: 2, UserFullName: "Ada Lovelace", UserUsername: "ada", Comment: "ok"}},
		Attachments: []dom.Attachment{{ID: 4, Filename: "a.txt", File: "todo_attachments/x_a.txt", FileSize: 5}},
	}

	out, err := json.Marshal(NewTodoDetailResponse(d, now))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, true, got["is_overdue"])
	assert.Equal(t, float64(-1), got["days_until_due"])
	assert.Equal(t, "01:00:00", got["estimated_duration"])
	assert.Equal(t, "01:30:00", got["duration"])
	assert.Equal(t, "Work", got["category"].(map[string]any)["name"])
	assert.Equal(t, "ada", got["comments"].([]any)[0].(map[string]any)["user_username"])
	assert.Equal(t, "/media/todo_attachments/x_a.txt", got["attachments"].([]any)[0].(map[string]any)["file"])
}

func TestNewEventResponse_DerivedFlags(t *testing.T) {
	e := dom.Event{ID: 1, StartTime: now.Add(-30 * time.Minute), EndTime: now.Add(90 * time.Minute)}
	r := NewEventResponse(e, now)
	assert.True(t, r.IsCurrent)
	assert.False(t, r.IsPast)
	assert.False(t, r.IsUpcoming)
	assert.Equal(t, 2*time.Hour, r.Duration.Duration)
}

func TestNewEventDetailResponse_EmptyChildren(t *testing.T) {
	d := dom.EventDetail{Event: dom.Event{StartTime: now, EndTime: now.Add(time.Hour)}}
	out, err := json.Marshal(NewEventDetailResponse(d, now))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, []any{}, got["participants"])
	assert.Equal(t, []any{}, got["reminders"])
	assert.Equal(t, []any{}, got["attachments"])
}
