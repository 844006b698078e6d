package app

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rfc(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func TestEventDefaultCalendar(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	start := time.Now().Add(time.Hour)

	w := s.do(alice.Access, http.MethodPost, "/api/calendar/events/", object{
		"title": "Backwards", "start_time": rfc(start), "end_time": rfc(start.Add(-time.Minute)),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "end_time")

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/calendars/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]object](t, w), "a rejected event must not create a calendar")

	w = s.do(alice.Access, http.MethodPost, "/api/calendar/events/", object{
		"title": "Standup", "start_time": rfc(start), "end_time": rfc(start.Add(15 * time.Minute)),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decode[object](t, w)
	cal := ev["calendar"].(object)
	assert.Equal(t, "Personal Calendar", cal["name"])
	assert.Equal(t, true, cal["is_default"])
	assert.Equal(t, "00:15:00", ev["duration"])
	assert.Equal(t, true, ev["is_upcoming"])

	w = s.do(alice.Access, http.MethodPost, "/api/calendar/events/", object{
		"title": "Lunch", "start_time": rfc(start.Add(2 * time.Hour)), "end_time": rfc(start.Add(3 * time.Hour)),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, cal["id"], decode[object](t, w)["calendar"].(object)["id"])

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/calendars/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cals := decode[[]object](t, w)
	require.Len(t, cals, 1)
	assert.Equal(t, float64(2), cals[0]["event_count"])
}

func TestEventUpdateChecksMergedRange(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	start := time.Now().Add(24 * time.Hour)

	w := s.do(alice.Access, http.MethodPost, "/api/calendar/events/", object{
		"title": "Review", "start_time": rfc(start), "end_time": rfc(start.Add(time.Hour)),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode[object](t, w)["id"].(float64))

	w = s.do(alice.Access, http.MethodPatch, path("/api/calendar/events/%d/", id), object{"start_time": rfc(start.Add(2 * time.Hour))})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "end_time")

	w = s.do(alice.Access, http.MethodPatch, path("/api/calendar/events/%d/", id), object{"location": "Room 4"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Room 4", decode[object](t, w)["location"])

	w = s.do(alice.Access, http.MethodPut, path("/api/calendar/events/%d/", id), object{"title": "Only title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := errorsOf(t, w)
	assert.Contains(t, errs, "start_time")
	assert.Contains(t, errs, "end_time")
}

func TestSingleDefaultCalendar(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	for _, name := range []string{"Work", "Home"} {
		w := s.do(alice.Access, http.MethodPost, "/api/calendar/calendars/", object{"name": name, "is_default": true})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(alice.Access, http.MethodGet, "/api/calendar/calendars/?ordering=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cals := decode[[]object](t, w)
	require.Len(t, cals, 2)
	assert.Equal(t, "Home", cals[0]["name"])
	assert.Equal(t, true, cals[0]["is_default"])
	assert.Equal(t, false, cals[1]["is_default"])

	w = s.do(alice.Access, http.MethodPost, "/api/calendar/calendars/", object{"name": "Home"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "name")
}

func TestEventDerivedQueries(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	now := time.Now()

	for _, ev := range []object{
		{"title": "now", "start_time": rfc(now), "end_time": rfc(now.Add(time.Hour))},
		{"title": "in three days", "start_time": rfc(now.Add(72 * time.Hour)), "end_time": rfc(now.Add(73 * time.Hour))},
		{"title": "last month", "start_time": rfc(now.AddDate(0, -1, 0)), "end_time": rfc(now.AddDate(0, -1, 0).Add(time.Hour))},
	} {
		w := s.do(alice.Access, http.MethodPost, "/api/calendar/events/", ev)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(alice.Access, http.MethodGet, "/api/calendar/events/today/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	today := decode[[]object](t, w)
	require.Len(t, today, 1)
	assert.Equal(t, "now", today[0]["title"])

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/events/upcoming/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	titles := []string{}
	for _, e := range decode[[]object](t, w) {
		titles = append(titles, e["title"].(string))
	}
	assert.Contains(t, titles, "in three days")
	assert.NotContains(t, titles, "last month")

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/statistics/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[object](t, w)
	assert.Equal(t, float64(3), stats["total_events"])
	assert.Equal(t, float64(1), stats["today_events"])
	assert.Equal(t, float64(1), stats["upcoming_events"])
	assert.Equal(t, float64(1), stats["past_events"])

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/events/?search=MONTH", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]object](t, w), 1)

	w = s.do(alice.Access, http.MethodGet, "/api/calendar/events/?is_all_day=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventSubResources(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	start := time.Now().Add(time.Hour)

	w := s.do(alice.Access, http.MethodPost, "/api/calendar/events/", object{
		"title": "Planning", "start_time": rfc(start), "end_time": rfc(start.Add(time.Hour)),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	eventID := int64(decode[object](t, w)["id"].(float64))
	participants := path("/api/calendar/events/%d/participants/", eventID)

	w = s.do(alice.Access, http.MethodPost, participants, object{"user": bob.UserID, "response_status": "accepted"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[object](t, w)
	assert.Equal(t, "bob@example.com", p["user_email"])
	assert.Equal(t, "bob Tester", p["user_name"])

	w = s.do(alice.Access, http.MethodPost, participants, object{"user": bob.UserID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(alice.Access, http.MethodPost, participants, object{"user": 999999})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "user")

	w = s.do(alice.Access, http.MethodPost, participants, object{"user": bob.UserID, "response_status": "maybe"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "response_status")

	w = s.do(bob.Access, http.MethodPost, participants, object{"user": alice.UserID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(alice.Access, http.MethodPost, path("/api/calendar/events/%d/reminders/", eventID), object{
		"reminder_type": "push", "reminder_time": rfc(start.Add(-15 * time.Minute)),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reminderID := int64(decode[object](t, w)["id"].(float64))
	send := path("/api/calendar/events/%d/reminders/%d/send/", eventID, reminderID)

	w = s.do(alice.Access, http.MethodPost, send, nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[object](t, w)
	assert.Equal(t, true, first["is_sent"])
	require.NotNil(t, first["sent_at"])

	w = s.do(alice.Access, http.MethodPost, send, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["sent_at"], decode[object](t, w)["sent_at"])

	w = s.do(bob.Access, http.MethodPost, send, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.upload(alice.Access, path("/api/calendar/events/%d/attachments/", eventID), "agenda.md", []byte("# agenda"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(8), decode[object](t, w)["file_size"])

	w = s.do(alice.Access, http.MethodGet, path("/api/calendar/events/%d/", eventID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[object](t, w)
	assert.Len(t, detail["participants"], 1)
	assert.Len(t, detail["reminders"], 1)
	assert.Len(t, detail["attachments"], 1)

	w = s.do(bob.Access, http.MethodGet, path("/api/calendar/events/%d/", eventID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetaEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do("", http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	index := decode[object](t, w)
	assert.Equal(t, "/api/calendar/events/today/", index["calendar"].(object)["today_events"])

	w = s.do("", http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.2.3", decode[object](t, w)["version"])

	w = s.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.ready = assert.AnError
	w = s.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
