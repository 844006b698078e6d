package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/repo"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// maxDefaultAttempts bounds retries after losing a race on the
// one-default-per-user index.
const maxDefaultAttempts = 3

var calendarUnique = map[string]uniqueField{
	repo.ConstraintCalendarName: {"name", "You already have a calendar with this name."},
}

type CalendarInput struct {
	Name        dom.Optional[string]
	Description dom.Optional[*string]
	Color       dom.Optional[string]
	IsDefault   dom.Optional[bool]
	IsPublic    dom.Optional[bool]
}

// EventInput is a create or update payload. A missing calendar on create
// selects the user's default calendar.
type EventInput struct {
	CalendarID        dom.Optional[*int64]
	Title             dom.Optional[string]
	Description       dom.Optional[*string]
	StartTime         dom.Optional[time.Time]
	EndTime           dom.Optional[time.Time]
	IsAllDay          dom.Optional[bool]
	IsRecurring       dom.Optional[bool]
	RecurrencePattern dom.Optional[*string]
	RecurrenceEndDate dom.Optional[*time.Time]
	EventType         dom.Optional[dom.EventType]
	Location          dom.Optional[*string]
	IsImportant       dom.Optional[bool]
	IsPrivate         dom.Optional[bool]
	ReminderMinutes   dom.Optional[int]
}

type ParticipantInput struct {
	UserID         int64
	IsOrganizer    bool
	ResponseStatus dom.ResponseStatus
}

type ReminderInput struct {
	ReminderType dom.ReminderType
	ReminderTime time.Time
}

type CalendarService struct {
	calendars repo.CalendarRepo
	events    repo.EventRepo
	users     repo.UserRepo
	files     FileStore
	loc       *time.Location
	log       *log.Logger
	now       func() time.Time

	// sf collapses concurrent default-calendar lookups for one user.
	sf singleflight.Group
}

// NewCalendarService builds the service. loc decides where "today" starts
// and ends.
func NewCalendarService(calendars repo.CalendarRepo, events repo.EventRepo, users repo.UserRepo,
	files FileStore, loc *time.Location, logger *log.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CalendarService{
		calendars: calendars,
		events:    events,
		users:     users,
		files:     files,
		loc:       loc,
		log:       logger,
		now:       time.Now,
	}
}

// --- calendars ---

func (s *CalendarService) ListCalendars(ctx context.Context, userID int64, f repo.CalendarFilter) ([]dom.Calendar, error) {
	return s.calendars.List(ctx, userID, f)
}

func (s *CalendarService) GetCalendar(ctx context.Context, userID, id int64) (dom.Calendar, error) {
	c, err := s.calendars.Get(ctx, userID, id)
	if err != nil {
		return dom.Calendar{}, storeErr(err, nil)
	}
	return c, nil
}

func (s *CalendarService) CreateCalendar(ctx context.Context, userID int64, in CalendarInput) (dom.Calendar, error) {
	c := dom.Calendar{UserID: userID, Color: dom.DefaultColor}
	if err := applyCalendar(&c, in, false); err != nil {
		return dom.Calendar{}, err
	}
	id, err := s.saveCalendar(ctx, c)
	if err != nil {
		return dom.Calendar{}, err
	}
	return s.GetCalendar(ctx, userID, id)
}

func (s *CalendarService) UpdateCalendar(ctx context.Context, userID, id int64, in CalendarInput, partial bool) (dom.Calendar, error) {
	c, err := s.GetCalendar(ctx, userID, id)
	if err != nil {
		return dom.Calendar{}, err
	}
	if err := applyCalendar(&c, in, partial); err != nil {
		return dom.Calendar{}, err
	}
	if _, err := s.saveCalendar(ctx, c); err != nil {
		return dom.Calendar{}, err
	}
	return s.GetCalendar(ctx, userID, id)
}

// DeleteCalendar removes the calendar and its events.
func (s *CalendarService) DeleteCalendar(ctx context.Context, userID, id int64) error {
	return storeErr(s.calendars.Delete(ctx, userID, id), nil)
}

func applyCalendar(c *dom.Calendar, in CalendarInput, partial bool) error {
	verr := &ValidationError{}
	requiredText(verr, "name", in.Name, partial, maxCategoryNameLength)
	if err := verr.OrNil(); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(in.Name.Or(c.Name))
	c.Description = in.Description.Or(c.Description)
	c.Color = in.Color.Or(c.Color)
	c.IsDefault = in.IsDefault.Or(c.IsDefault)
	c.IsPublic = in.IsPublic.Or(c.IsPublic)
	return nil
}

// saveCalendar persists c. When c is the default, the user's other defaults
// are cleared in the same transaction; losing a race on the default index is
// retried.
func (s *CalendarService) saveCalendar(ctx context.Context, c dom.Calendar) (int64, error) {
	var err error
	for attempt := 1; ; attempt++ {
		id := c.ID
		err = s.calendars.InTx(ctx, func(r repo.CalendarRepo) error {
			if c.IsDefault {
				if err := r.ClearDefault(ctx, c.UserID, c.ID); err != nil {
					return err
				}
			}
			if c.ID != 0 {
				return r.Update(ctx, c)
			}
			var err error
			id, err = r.Create(ctx, c)
			return err
		})
		if err == nil {
			return id, nil
		}
		if !repo.IsConstraint(err, repo.ConstraintCalendarDefault) || attempt >= maxDefaultAttempts {
			break
		}
		s.log.Warn("default calendar conflict, retrying", "user_id", c.UserID, "attempt", attempt)
	}
	return 0, storeErr(err, calendarUnique)
}

// EnsureDefaultCalendar returns the user's default calendar, creating
// "Personal Calendar" on first use. The shared lookup outlives the caller
// that started it, so other waiters are not failed by its cancellation.
func (s *CalendarService) EnsureDefaultCalendar(ctx context.Context, userID int64) (dom.Calendar, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return s.ensureDefault(shared, userID)
	})
	if err != nil {
		return dom.Calendar{}, err
	}
	return v.(dom.Calendar), nil
}

func (s *CalendarService) ensureDefault(ctx context.Context, userID int64) (dom.Calendar, error) {
	desc := dom.DefaultCalendarDescription
	for attempt := 1; attempt <= maxDefaultAttempts; attempt++ {
		c, err := s.calendars.GetDefault(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return dom.Calendar{}, err
		}

		id, created, err := s.calendars.InsertDefault(ctx, dom.Calendar{
			UserID:      userID,
			Name:        dom.DefaultCalendarName,
			Description: &desc,
			Color:       dom.DefaultColor,
		})
		if err != nil {
			return dom.Calendar{}, err
		}
		if created {
			s.log.Info("created default calendar", "user_id", userID, "calendar_id", id)
			return s.GetCalendar(ctx, userID, id)
		}

		// Another request created a default first, or a plain calendar
		// already uses the default name.
		if c, err := s.calendars.GetDefault(ctx, userID); err == nil {
			return c, nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return dom.Calendar{}, err
		}
		id, err = s.calendars.PromoteToDefault(ctx, userID, dom.DefaultCalendarName)
		if err == nil {
			return s.GetCalendar(ctx, userID, id)
		}
		if !errors.Is(err, repo.ErrNotFound) && !repo.IsConstraint(err, repo.ConstraintCalendarDefault) {
			return dom.Calendar{}, err
		}
	}
	return dom.Calendar{}, fmt.Errorf("resolve default calendar for user %d: too many conflicts", userID)
}

// --- events ---

func (s *CalendarService) ListEvents(ctx context.Context, userID int64, f repo.EventFilter) ([]dom.Event, error) {
	return s.events.List(ctx, userID, f)
}

func (s *CalendarService) GetEvent(ctx context.Context, userID, id int64) (dom.Event, error) {
	e, err := s.events.Get(ctx, userID, id)
	if err != nil {
		return dom.Event{}, storeErr(err, nil)
	}
	return e, nil
}

// EventDetail returns the event with its calendar, participants,
// attachments and reminders.
func (s *CalendarService) EventDetail(ctx context.Context, userID, id int64) (dom.EventDetail, error) {
	e, err := s.GetEvent(ctx, userID, id)
	if err != nil {
		return dom.EventDetail{}, err
	}
	d := dom.EventDetail{Event: e}
	if d.Calendar, err = s.GetCalendar(ctx, userID, e.CalendarID); err != nil {
		return dom.EventDetail{}, err
	}
	if d.Participants, err = s.events.ListParticipants(ctx, userID, id); err != nil {
		return dom.EventDetail{}, err
	}
	if d.Attachments, err = s.events.ListAttachments(ctx, userID, id); err != nil {
		return dom.EventDetail{}, err
	}
	if d.Reminders, err = s.events.ListReminders(ctx, userID, id); err != nil {
		return dom.EventDetail{}, err
	}
	return d, nil
}

// applyEvent merges in over e and validates the merged record.
func (s *CalendarService) applyEvent(ctx context.Context, userID int64, e *dom.Event, in EventInput, partial bool) error {
	verr := &ValidationError{}
	requiredText(verr, "title", in.Title, partial, maxTitleLength)
	if !partial {
		if !in.StartTime.Set {
			verr.Add("start_time", "This field is required.")
		}
		if !in.EndTime.Set {
			verr.Add("end_time", "This field is required.")
		}
	}
	if in.EventType.Set && !in.EventType.Value.Valid() {
		verr.Add("event_type", fmt.Sprintf("%q is not a valid choice.", in.EventType.Value))
	}
	if in.ReminderMinutes.Set {
		m := in.ReminderMinutes.Value
		if m < dom.MinReminderMinutes {
			verr.Add("reminder_minutes", fmt.Sprintf("Ensure this value is greater than or equal to %d.", dom.MinReminderMinutes))
		} else if m > dom.MaxReminderMinutes {
			verr.Add("reminder_minutes", fmt.Sprintf("Ensure this value is less than or equal to %d.", dom.MaxReminderMinutes))
		}
	}
	if in.CalendarID.Set && in.CalendarID.Value != nil {
		if _, err := s.calendars.Get(ctx, userID, *in.CalendarID.Value); err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			verr.Add("calendar_id", fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(*in.CalendarID.Value, 10)))
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	if in.CalendarID.Set && in.CalendarID.Value != nil {
		e.CalendarID = *in.CalendarID.Value
	}
	e.Title = strings.TrimSpace(in.Title.Or(e.Title))
	e.Description = in.Description.Or(e.Description)
	e.StartTime = in.StartTime.Or(e.StartTime)
	e.EndTime = in.EndTime.Or(e.EndTime)
	e.IsAllDay = in.IsAllDay.Or(e.IsAllDay)
	e.IsRecurring = in.IsRecurring.Or(e.IsRecurring)
	e.RecurrencePattern = in.RecurrencePattern.Or(e.RecurrencePattern)
	e.RecurrenceEndDate = in.RecurrenceEndDate.Or(e.RecurrenceEndDate)
	e.EventType = in.EventType.Or(e.EventType)
	e.Location = in.Location.Or(e.Location)
	e.IsImportant = in.IsImportant.Or(e.IsImportant)
	e.IsPrivate = in.IsPrivate.Or(e.IsPrivate)
	e.ReminderMinutes = in.ReminderMinutes.Or(e.ReminderMinutes)

	if !e.ValidTimeRange() {
		return fieldError("end_time", "End time must be after start time.")
	}
	return nil
}

// CreateEvent validates the event before anything is written, then files it
// under the requested calendar or the user's default one.
func (s *CalendarService) CreateEvent(ctx context.Context, userID int64, in EventInput) (dom.Event, error) {
	e := dom.Event{
		UserID:          userID,
		EventType:       dom.EventOther,
		ReminderMinutes: dom.DefaultReminderMinutes,
	}
	if err := s.applyEvent(ctx, userID, &e, in, false); err != nil {
		return dom.Event{}, err
	}
	if e.CalendarID == 0 {
		cal, err := s.EnsureDefaultCalendar(ctx, userID)
		if err != nil {
			return dom.Event{}, err
		}
		e.CalendarID = cal.ID
	}
	id, err := s.events.Create(ctx, e)
	if err != nil {
		return dom.Event{}, storeErr(err, nil)
	}
	return s.GetEvent(ctx, userID, id)
}

func (s *CalendarService) UpdateEvent(ctx context.Context, userID, id int64, in EventInput, partial bool) (dom.Event, error) {
	e, err := s.GetEvent(ctx, userID, id)
	if err != nil {
		return dom.Event{}, err
	}
	if err := s.applyEvent(ctx, userID, &e, in, partial); err != nil {
		return dom.Event{}, err
	}
	if err := s.events.Update(ctx, e); err != nil {
		return dom.Event{}, storeErr(err, nil)
	}
	return s.GetEvent(ctx, userID, id)
}

func (s *CalendarService) DeleteEvent(ctx context.Context, userID, id int64) error {
	return storeErr(s.events.Delete(ctx, userID, id), nil)
}

// TodayEvents lists events starting on the current day in the configured
// timezone.
func (s *CalendarService) TodayEvents(ctx context.Context, userID int64) ([]dom.Event, error) {
	start, end := dom.DayBounds(s.now(), s.loc)
	return s.events.List(ctx, userID, repo.EventFilter{StartFrom: &start, StartBefore: &end, Ordering: "start_time"})
}

// UpcomingEvents lists events starting within the next seven days.
func (s *CalendarService) UpcomingEvents(ctx context.Context, userID int64) ([]dom.Event, error) {
	now := s.now()
	until := now.Add(upcomingWindow)
	return s.events.List(ctx, userID, repo.EventFilter{StartFrom: &now, StartUntil: &until, Ordering: "start_time"})
}

// Statistics buckets events by start date relative to today.
func (s *CalendarService) Statistics(ctx context.Context, userID int64) (dom.EventStats, error) {
	start, end := dom.DayBounds(s.now(), s.loc)
	return s.events.Stats(ctx, userID, start, end)
}

// --- sub-resources ---

// AddParticipant invites another user to the caller's event. A repeated
// (event, user) pair fails with ErrConflict.
func (s *CalendarService) AddParticipant(ctx context.Context, userID, eventID int64, in ParticipantInput) (dom.Participant, error) {
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return dom.Participant{}, err
	}
	if in.ResponseStatus == "" {
		in.ResponseStatus = dom.ResponsePending
	}
	verr := &ValidationError{}
	if !in.ResponseStatus.Valid() {
		verr.Add("response_status", fmt.Sprintf("%q is not a valid choice.", in.ResponseStatus))
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return dom.Participant{}, err
		}
		verr.Add("user", fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(in.UserID, 10)))
	}
	if err := verr.OrNil(); err != nil {
		return dom.Participant{}, err
	}

	id, err := s.events.AddParticipant(ctx, userID, dom.Participant{
		EventID:        eventID,
		UserID:         in.UserID,
		IsOrganizer:    in.IsOrganizer,
		ResponseStatus: in.ResponseStatus,
	})
	if err != nil {
		return dom.Participant{}, storeErr(err, nil)
	}
	p, err := s.events.GetParticipant(ctx, userID, id)
	if err != nil {
		return dom.Participant{}, storeErr(err, nil)
	}
	return p, nil
}

func (s *CalendarService) AddAttachment(ctx context.Context, userID, eventID int64, filename string, r io.Reader) (dom.Attachment, error) {
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return dom.Attachment{}, err
	}
	return saveAttachment(ctx, s.files, "event_attachments", eventID, filename, r, s.now(),
		func(a dom.Attachment) (int64, error) { return s.events.AddAttachment(ctx, userID, a) })
}

func (s *CalendarService) AddReminder(ctx context.Context, userID, eventID int64, in ReminderInput) (dom.Reminder, error) {
	if in.ReminderType == "" {
		in.ReminderType = dom.ReminderEmail
	}
	verr := &ValidationError{}
	if !in.ReminderType.Valid() {
		verr.Add("reminder_type", fmt.Sprintf("%q is not a valid choice.", in.ReminderType))
	}
	if in.ReminderTime.IsZero() {
		verr.Add("reminder_time", "This field is required.")
	}
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return dom.Reminder{}, err
	}
	if err := verr.OrNil(); err != nil {
		return dom.Reminder{}, err
	}
	id, err := s.events.AddReminder(ctx, userID, dom.Reminder{
		EventID:      eventID,
		ReminderType: in.ReminderType,
		ReminderTime: in.ReminderTime,
	})
	if err != nil {
		return dom.Reminder{}, storeErr(err, nil)
	}
	return s.getReminder(ctx, userID, eventID, id)
}

func (s *CalendarService) getReminder(ctx context.Context, userID, eventID, id int64) (dom.Reminder, error) {
	r, err := s.events.GetReminder(ctx, userID, eventID, id)
	if err != nil {
		return dom.Reminder{}, storeErr(err, nil)
	}
	return r, nil
}

// MarkReminderSent moves the reminder to sent. Sending it again leaves
// sent_at as it was and returns the stored record.
func (s *CalendarService) MarkReminderSent(ctx context.Context, userID, eventID, id int64) (dom.Reminder, error) {
	r, err := s.getReminder(ctx, userID, eventID, id)
	if err != nil {
		return dom.Reminder{}, err
	}
	if !r.MarkSent(s.now()) {
		return r, nil
	}
	if err := s.events.MarkReminderSent(ctx, userID, eventID, id, *r.SentAt); err != nil {
		return dom.Reminder{}, storeErr(err, nil)
	}
	return s.getReminder(ctx, userID, eventID, id)
}
