package repo

import (
	"context"
	"time"

	dom "todocalendar/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// EventFilter narrows an owner-scoped event listing. StartFrom and StartUntil
// are inclusive bounds on start_time, StartBefore is exclusive.
type EventFilter struct {
	CalendarID  *int64
	IsAllDay    *bool
	Search      string
	Ordering    string
	StartFrom   *time.Time
	StartBefore *time.Time
	StartUntil  *time.Time
}

type EventRepo interface {
	List(ctx context.Context, userID int64, f EventFilter) ([]dom.Event, error)
	Get(ctx context.Context, userID, id int64) (dom.Event, error)
	Create(ctx context.Context, e dom.Event) (int64, error)
	Update(ctx context.Context, e dom.Event) error
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (dom.EventStats, error)

	AddParticipant(ctx context.Context, userID int64, p dom.Participant) (int64, error)
	ListParticipants(ctx context.Context, userID, eventID int64) ([]dom.Participant, error)
	GetParticipant(ctx context.Context, userID, id int64) (dom.Participant, error)

	AddAttachment(ctx context.Context, userID int64, a dom.Attachment) (int64, error)
	ListAttachments(ctx context.Context, userID, eventID int64) ([]dom.Attachment, error)

	AddReminder(ctx context.Context, userID int64, r dom.Reminder) (int64, error)
	ListReminders(ctx context.Context, userID, eventID int64) ([]dom.Reminder, error)
	GetReminder(ctx context.Context, userID, eventID, id int64) (dom.Reminder, error)
	// MarkReminderSent flips an unsent reminder to sent; already-sent
	// reminders are left untouched.
	MarkReminderSent(ctx context.Context, userID, eventID, id int64, at time.Time) error
}

type PGEventRepo struct {
	db DBTX
}

func NewPGEventRepo(db DBTX) *PGEventRepo {
	return &PGEventRepo{db: db}
}

var eventOrdering = map[string]string{
	"title":      "e.title",
	"start_time": "e.start_time",
	"created_at": "e.created_at",
}

func eventSelect() sq.SelectBuilder {
	return psql.Select(
		"e.id", "e.user_id", "e.calendar_id", "c.name AS calendar_name", "c.color AS calendar_color",
		"e.title", "e.description", "e.start_time", "e.end_time", "e.is_all_day", "e.is_recurring",
		"e.recurrence_pattern", "e.recurrence_end_date", "e.event_type", "e.location",
		"e.is_important", "e.is_private", "e.reminder_minutes", "e.created_at", "e.updated_at",
	).From("events e").Join("calendars c ON c.id = e.calendar_id")
}

func (r *PGEventRepo) List(ctx context.Context, userID int64, f EventFilter) ([]dom.Event, error) {
	q := eventSelect().Where(sq.Eq{"e.user_id": userID})
	if f.CalendarID != nil {
		q = q.Where(sq.Eq{"e.calendar_id": *f.CalendarID})
	}
	if f.IsAllDay != nil {
		q = q.Where(sq.Eq{"e.is_all_day": *f.IsAllDay})
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(sq.Or{sq.ILike{"e.title": p}, sq.ILike{"e.description": p}, sq.ILike{"e.location": p}})
	}
	if f.StartFrom != nil {
		q = q.Where(sq.GtOrEq{"e.start_time": *f.StartFrom})
	}
	if f.StartBefore != nil {
		q = q.Where(sq.Lt{"e.start_time": *f.StartBefore})
	}
	if f.StartUntil != nil {
		q = q.Where(sq.LtOrEq{"e.start_time": *f.StartUntil})
	}
	q = q.OrderBy(orderBy(f.Ordering, eventOrdering, "e.start_time DESC"), "e.id DESC")

	list := []dom.Event{}
	if err := selectAll(ctx, r.db, &list, q); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGEventRepo) Get(ctx context.Context, userID, id int64) (dom.Event, error) {
	var e dom.Event
	err := get(ctx, r.db, &e, eventSelect().Where(sq.Eq{"e.id": id, "e.user_id": userID}))
	return e, err
}

func (r *PGEventRepo) Create(ctx context.Context, e dom.Event) (int64, error) {
	return insertID(ctx, r.db, psql.Insert("events").
		Columns("user_id", "calendar_id", "title", "description", "start_time", "end_time",
			"is_all_day", "is_recurring", "recurrence_pattern", "recurrence_end_date", "event_type",
			"location", "is_important", "is_private", "reminder_minutes").
		Values(e.UserID, e.CalendarID, e.Title, e.Description, e.StartTime, e.EndTime,
			e.IsAllDay, e.IsRecurring, e.RecurrencePattern, e.RecurrenceEndDate, string(e.EventType),
			e.Location, e.IsImportant, e.IsPrivate, e.ReminderMinutes))
}

func (r *PGEventRepo) Update(ctx context.Context, e dom.Event) error {
	return execOne(ctx, r.db, psql.Update("events").
		Set("calendar_id", e.CalendarID).
		Set("title", e.Title).
		Set("description", e.Description).
		Set("start_time", e.StartTime).
		Set("end_time", e.EndTime).
		Set("is_all_day", e.IsAllDay).
		Set("is_recurring", e.IsRecurring).
		Set("recurrence_pattern", e.RecurrencePattern).
		Set("recurrence_end_date", e.RecurrenceEndDate).
		Set("event_type", string(e.EventType)).
		Set("location", e.Location).
		Set("is_important", e.IsImportant).
		Set("is_private", e.IsPrivate).
		Set("reminder_minutes", e.ReminderMinutes).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": e.ID, "user_id": e.UserID}))
}

func (r *PGEventRepo) Delete(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.db, psql.Delete("events").Where(sq.Eq{"id": id, "user_id": userID}))
}

// Stats buckets the owner's events by start time relative to the day
// [dayStart, dayEnd).
func (r *PGEventRepo) Stats(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (dom.EventStats, error) {
	const query = `
		SELECT COUNT(*) AS total_events,
		       COUNT(*) FILTER (WHERE start_time >= $2 AND start_time < $3) AS today_events,
		       COUNT(*) FILTER (WHERE start_time >= $3) AS upcoming_events,
		       COUNT(*) FILTER (WHERE start_time < $2) AS past_events
		FROM events WHERE user_id = $1`
	var s dom.EventStats
	err := mapErr(sqlx.GetContext(ctx, r.db, &s, query, userID, dayStart, dayEnd))
	return s, err
}

// AddParticipant adds p to an event owned by userID. A repeated (event, user)
// pair fails with a ConstraintError on ConstraintParticipantPair.
func (r *PGEventRepo) AddParticipant(ctx context.Context, userID int64, p dom.Participant) (int64, error) {
	const query = `
		INSERT INTO event_participants (event_id, user_id, is_organizer, response_status)
		SELECT e.id, $3, $4, $5 FROM events e WHERE e.id = $1 AND e.user_id = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query,
		p.EventID, userID, p.UserID, p.IsOrganizer, string(p.ResponseStatus)))
	return id, err
}

func participantSelect(userID int64) sq.SelectBuilder {
	return psql.Select(
		"p.id", "p.event_id", "p.user_id",
		"TRIM(u.first_name || ' ' || u.last_name) AS user_full_name", "u.email AS user_email",
		"p.is_organizer", "p.response_status", "p.joined_at",
	).From("event_participants p").
		Join("events e ON e.id = p.event_id").
		Join("users u ON u.id = p.user_id").
		Where(sq.Eq{"e.user_id": userID})
}

func (r *PGEventRepo) ListParticipants(ctx context.Context, userID, eventID int64) ([]dom.Participant, error) {
	list := []dom.Participant{}
	err := selectAll(ctx, r.db, &list, participantSelect(userID).
		Where(sq.Eq{"p.event_id": eventID}).OrderBy("p.joined_at", "p.id"))
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGEventRepo) GetParticipant(ctx context.Context, userID, id int64) (dom.Participant, error) {
	var p dom.Participant
	err := get(ctx, r.db, &p, participantSelect(userID).Where(sq.Eq{"p.id": id}))
	return p, err
}

func (r *PGEventRepo) AddAttachment(ctx context.Context, userID int64, a dom.Attachment) (int64, error) {
	const query = `
		INSERT INTO event_attachments (event_id, filename, file, file_size)
		SELECT e.id, $3, $4, $5 FROM events e WHERE e.id = $1 AND e.user_id = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query, a.ParentID, userID, a.Filename, a.File, a.FileSize))
	return id, err
}

func (r *PGEventRepo) ListAttachments(ctx context.Context, userID, eventID int64) ([]dom.Attachment, error) {
	list := []dom.Attachment{}
	err := selectAll(ctx, r.db, &list, psql.Select(
		"a.id", "a.event_id AS parent_id", "a.filename", "a.file", "a.file_size", "a.uploaded_at",
	).From("event_attachments a").
		Join("events e ON e.id = a.event_id").
		Where(sq.Eq{"a.event_id": eventID, "e.user_id": userID}).
		OrderBy("a.uploaded_at", "a.id"))
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGEventRepo) AddReminder(ctx context.Context, userID int64, rem dom.Reminder) (int64, error) {
	const query = `
		INSERT INTO event_reminders (event_id, reminder_type, reminder_time)
		SELECT e.id, $3, $4 FROM events e WHERE e.id = $1 AND e.user_id = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query,
		rem.EventID, userID, string(rem.ReminderType), rem.ReminderTime))
	return id, err
}

func reminderSelect(userID int64) sq.SelectBuilder {
	return psql.Select(
		"r.id", "r.event_id", "r.reminder_type", "r.reminder_time", "r.is_sent", "r.sent_at", "r.created_at",
	).From("event_reminders r").
		Join("events e ON e.id = r.event_id").
		Where(sq.Eq{"e.user_id": userID})
}

func (r *PGEventRepo) ListReminders(ctx context.Context, userID, eventID int64) ([]dom.Reminder, error) {
	list := []dom.Reminder{}
	err := selectAll(ctx, r.db, &list, reminderSelect(userID).
		Where(sq.Eq{"r.event_id": eventID}).OrderBy("r.reminder_time", "r.id"))
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGEventRepo) GetReminder(ctx context.Context, userID, eventID, id int64) (dom.Reminder, error) {
	var rem dom.Reminder
	err := get(ctx, r.db, &rem, reminderSelect(userID).Where(sq.Eq{"r.id": id, "r.event_id": eventID}))
	return rem, err
}

func (r *PGEventRepo) MarkReminderSent(ctx context.Context, userID, eventID, id int64, at time.Time) error {
	const query = `
		UPDATE event_reminders r SET is_sent = TRUE, sent_at = $4
		FROM events e
		WHERE r.id = $1 AND r.event_id = $2 AND e.id = r.event_id AND e.user_id = $3 AND NOT r.is_sent`
	_, err := r.db.ExecContext(ctx, query, id, eventID, userID, at)
	return mapErr(err)
}
