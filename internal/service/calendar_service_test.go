package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/logger"
	"todocalendar/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventInput(title string, start, end time.Time) EventInput {
	return EventInput{Title: dom.Some(title), StartTime: dom.Some(start), EndTime: dom.Some(end)}
}

func TestCalendarService_SingleDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	check := func() {
		t.Helper()
		assert.LessOrEqual(t, f.store.CountDefaults(u.ID), 1)
	}

	a, err := f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some("A"), IsDefault: dom.Some(true)})
	require.NoError(t, err)
	check()
	b, err := f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some("B"), IsDefault: dom.Some(true)})
	require.NoError(t, err)
	check()

	a, err = f.calendars.GetCalendar(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, a.IsDefault)
	assert.True(t, b.IsDefault)

	a, err = f.calendars.UpdateCalendar(ctx, u.ID, a.ID, CalendarInput{IsDefault: dom.Some(true)}, true)
	require.NoError(t, err)
	check()
	assert.True(t, a.IsDefault)
	b, err = f.calendars.GetCalendar(ctx, u.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, b.IsDefault)

	// Re-saving the current default keeps it default.
	a, err = f.calendars.UpdateCalendar(ctx, u.ID, a.ID, CalendarInput{Color: dom.Some("#123456")}, true)
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
	check()

	_, err = f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some("C")})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.CountDefaults(u.ID))

	// Another user's default is independent.
	other := f.user(t, "bob")
	_, err = f.calendars.CreateCalendar(ctx, other.ID, CalendarInput{Name: dom.Some("A"), IsDefault: dom.Some(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.CountDefaults(u.ID))
	assert.Equal(t, 1, f.store.CountDefaults(other.ID))
}

func TestCalendarService_CalendarValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	_, err := f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{})
	requireFieldError(t, err, "name")

	_, err = f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some("Work")})
	require.NoError(t, err)
	_, err = f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some("Work")})
	requireFieldError(t, err, "name")
}

func TestCalendarService_EventTimeRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	for _, end := range []time.Time{now, now.Add(-time.Minute)} {
		_, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("bad", now, end))
		requireFieldError(t, err, "end_time")
	}
	assert.Equal(t, 0, f.store.EventCount())
	assert.Equal(t, 0, f.store.CountDefaults(u.ID), "a rejected event must not create the default calendar")

	e, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("ok", now, now.Add(time.Hour)))
	require.NoError(t, err)

	// A patch that only moves start past the stored end is checked on the
	// merged record.
	_, err = f.calendars.UpdateEvent(ctx, u.ID, e.ID, EventInput{StartTime: dom.Some(now.Add(2 * time.Hour))}, true)
	requireFieldError(t, err, "end_time")
	stored, err := f.calendars.GetEvent(ctx, u.ID, e.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(now))
}

func TestCalendarService_EventDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	e, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("standup", now, now.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, dom.EventOther, e.EventType)
	assert.Equal(t, dom.DefaultReminderMinutes, e.ReminderMinutes)
	assert.Equal(t, dom.DefaultCalendarName, e.CalendarName)

	_, err = f.calendars.CreateEvent(ctx, u.ID, EventInput{Title: dom.Some("x")})
	requireFieldError(t, err, "start_time")

	in := eventInput("x", now, now.Add(time.Hour))
	in.ReminderMinutes = dom.Some(0)
	_, err = f.calendars.CreateEvent(ctx, u.ID, in)
	requireFieldError(t, err, "reminder_minutes")

	in = eventInput("x", now, now.Add(time.Hour))
	in.ReminderMinutes = dom.Some(dom.MaxReminderMinutes + 1)
	_, err = f.calendars.CreateEvent(ctx, u.ID, in)
	requireFieldError(t, err, "reminder_minutes")

	in = eventInput("x", now, now.Add(time.Hour))
	in.EventType = dom.Some(dom.EventType("party"))
	_, err = f.calendars.CreateEvent(ctx, u.ID, in)
	requireFieldError(t, err, "event_type")

	other := f.user(t, "bob")
	bobCal, err := f.calendars.CreateCalendar(ctx, other.ID, CalendarInput{Name: dom.Some("Bob")})
	require.NoError(t, err)
	in = eventInput("x", now, now.Add(time.Hour))
	in.CalendarID = dom.Some(&bobCal.ID)
	_, err = f.calendars.CreateEvent(ctx, u.ID, in)
	requireFieldError(t, err, "calendar_id")
}

func TestCalendarService_ConcurrentDefaultCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	// A second service over the same store stands in for another process:
	// it does not share the singleflight group.
	peer := NewCalendarService(f.store.Calendars(), f.store.Events(), f.store.Users(), nil, time.UTC, logger.Discard())
	peer.now = clock

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		svc := f.calendars
		if i%2 == 1 {
			svc = peer
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateEvent(ctx, u.ID, eventInput("e", now, now.Add(time.Hour)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.store.CountDefaults(u.ID))
	cals, err := f.calendars.ListCalendars(ctx, u.ID, repo.CalendarFilter{})
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, int64(n), cals[0].EventCount)
}

// gatedCalendars holds GetDefault until release is closed and then fails
// with the context's error, like a driver would.
type gatedCalendars struct {
	repo.CalendarRepo
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedCalendars) GetDefault(ctx context.Context, userID int64) (dom.Calendar, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return dom.Calendar{}, err
	}
	return g.CalendarRepo.GetDefault(ctx, userID)
}

func TestCalendarService_DefaultCalendarSurvivesCanceledLeader(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ada")
	gate := &gatedCalendars{CalendarRepo: f.store.Calendars(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewCalendarService(gate, f.store.Events(), f.store.Users(), nil, time.UTC, logger.Discard())
	svc.now = clock

	leaderCtx, cancel := context.WithCancel(context.Background())
	type result struct {
		cal dom.Calendar
		err error
	}
	leader := make(chan result, 1)
	go func() {
		c, err := svc.EnsureDefaultCalendar(leaderCtx, u.ID)
		leader <- result{c, err}
	}()
	<-gate.entered

	follower := make(chan result, 1)
	go func() {
		c, err := svc.EnsureDefaultCalendar(context.Background(), u.ID)
		follower <- result{c, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(gate.release)

	lr, fr := <-leader, <-follower
	require.NoError(t, lr.err)
	require.NoError(t, fr.err)
	assert.Equal(t, lr.cal.ID, fr.cal.ID)
	assert.Equal(t, 1, f.store.CountDefaults(u.ID))
}

func TestCalendarService_DefaultPromotesExistingName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")

	plain, err := f.calendars.CreateCalendar(ctx, u.ID, CalendarInput{Name: dom.Some(dom.DefaultCalendarName)})
	require.NoError(t, err)
	require.False(t, plain.IsDefault)

	cal, err := f.calendars.EnsureDefaultCalendar(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, plain.ID, cal.ID)
	assert.True(t, cal.IsDefault)
	assert.Equal(t, 1, f.store.CountDefaults(u.ID))
}

func TestCalendarService_DerivedQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	other := f.user(t, "bob")

	mk := func(userID int64, title string, start time.Time) {
		_, err := f.calendars.CreateEvent(ctx, userID, eventInput(title, start, start.Add(30*time.Minute)))
		require.NoError(t, err)
	}
	mk(u.ID, "yesterday", now.Add(-24*time.Hour))
	mk(u.ID, "this morning", now.Add(-3*time.Hour))
	mk(u.ID, "tonight", now.Add(6*time.Hour))
	mk(u.ID, "in three days", now.Add(72*time.Hour))
	mk(u.ID, "next month", now.Add(30*24*time.Hour))
	mk(other.ID, "bob today", now.Add(time.Hour))

	titles := func(list []dom.Event) []string {
		out := []string{}
		for _, e := range list {
			out = append(out, e.Title)
		}
		return out
	}

	today, err := f.calendars.TodayEvents(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"this morning", "tonight"}, titles(today))

	upcoming, err := f.calendars.UpcomingEvents(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tonight", "in three days"}, titles(upcoming))

	st, err := f.calendars.Statistics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, dom.EventStats{Total: 5, Today: 2, Upcoming: 2, Past: 1}, st)
}

func TestCalendarService_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	e, err := f.calendars.CreateEvent(ctx, bob.ID, eventInput("bob's", now, now.Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.calendars.GetEvent(ctx, alice.ID, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.calendars.EventDetail(ctx, alice.ID, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.calendars.UpdateEvent(ctx, alice.ID, e.ID, EventInput{Title: dom.Some("mine")}, true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.calendars.DeleteEvent(ctx, alice.ID, e.ID), ErrNotFound)
	_, err = f.calendars.GetCalendar(ctx, alice.ID, e.CalendarID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.calendars.AddParticipant(ctx, alice.ID, e.ID, ParticipantInput{UserID: alice.ID})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.calendars.AddReminder(ctx, alice.ID, e.ID, ReminderInput{ReminderTime: now})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.calendars.ListEvents(ctx, alice.ID, repo.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCalendarService_Participants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	guest := f.user(t, "grace")

	e, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("review", now, now.Add(time.Hour)))
	require.NoError(t, err)

	p, err := f.calendars.AddParticipant(ctx, u.ID, e.ID, ParticipantInput{UserID: guest.ID, IsOrganizer: true})
	require.NoError(t, err)
	assert.Equal(t, dom.ResponsePending, p.ResponseStatus)
	assert.Equal(t, guest.Email, p.UserEmail)
	assert.Equal(t, "grace Tester", p.UserFullName)

	_, err = f.calendars.AddParticipant(ctx, u.ID, e.ID, ParticipantInput{UserID: guest.ID, ResponseStatus: dom.ResponseAccepted})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.calendars.AddParticipant(ctx, u.ID, e.ID, ParticipantInput{UserID: 9999})
	requireFieldError(t, err, "user")

	_, err = f.calendars.AddParticipant(ctx, u.ID, e.ID, ParticipantInput{UserID: u.ID, ResponseStatus: "maybe"})
	requireFieldError(t, err, "response_status")

	d, err := f.calendars.EventDetail(ctx, u.ID, e.ID)
	require.NoError(t, err)
	assert.Len(t, d.Participants, 1)
	assert.Equal(t, dom.DefaultCalendarName, d.Calendar.Name)
}

func TestCalendarService_Reminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	e, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("review", now.Add(time.Hour), now.Add(2*time.Hour)))
	require.NoError(t, err)

	_, err = f.calendars.AddReminder(ctx, u.ID, e.ID, ReminderInput{ReminderType: "pigeon", ReminderTime: now})
	requireFieldError(t, err, "reminder_type")

	r, err := f.calendars.AddReminder(ctx, u.ID, e.ID, ReminderInput{ReminderTime: now.Add(45 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, dom.ReminderEmail, r.ReminderType)
	assert.False(t, r.IsSent)
	assert.Nil(t, r.SentAt)

	sent, err := f.calendars.MarkReminderSent(ctx, u.ID, e.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, sent.IsSent)
	require.NotNil(t, sent.SentAt)
	assert.True(t, sent.SentAt.Equal(now))

	f.calendars.now = func() time.Time { return now.Add(time.Hour) }
	again, err := f.calendars.MarkReminderSent(ctx, u.ID, e.ID, r.ID)
	require.NoError(t, err, "sending twice is a no-op")
	assert.True(t, again.SentAt.Equal(now))

	_, err = f.calendars.MarkReminderSent(ctx, u.ID, e.ID, r.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalendarService_Attachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	e, err := f.calendars.CreateEvent(ctx, u.ID, eventInput("review", now, now.Add(time.Hour)))
	require.NoError(t, err)

	a, err := f.calendars.AddAttachment(ctx, u.ID, e.ID, "agenda.md", strings.NewReader("# agenda"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.FileSize)
	assert.True(t, strings.HasPrefix(a.File, "event_attachments/"))

	_, err = f.calendars.AddAttachment(ctx, u.ID, e.ID, "", strings.NewReader("x"))
	requireFieldError(t, err, "file")
}
