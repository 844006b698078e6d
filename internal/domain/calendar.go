package domain

import "time"

// DefaultCalendarName is used for the calendar created on a user's first
// event without an explicit calendar.
const (
	DefaultCalendarName        = "Personal Calendar"
	DefaultCalendarDescription = "Default personal calendar"
)

type Calendar struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Color       string    `db:"color"`
	IsDefault   bool      `db:"is_default"`
	IsPublic    bool      `db:"is_public"`
	EventCount  int64     `db:"event_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type EventType string

const (
	EventMeeting     EventType = "meeting"
	EventAppointment EventType = "appointment"
	EventTask        EventType = "task"
	EventReminder    EventType = "reminder"
	EventHoliday     EventType = "holiday"
	EventPersonal    EventType = "personal"
	EventWork        EventType = "work"
	EventOther       EventType = "other"
)

func (t EventType) Valid() bool {
	switch t {
	case EventMeeting, EventAppointment, EventTask, EventReminder,
		EventHoliday, EventPersonal, EventWork, EventOther:
		return true
	}
	return false
}

const (
	MinReminderMinutes     = 1
	MaxReminderMinutes     = 10080
	DefaultReminderMinutes = 15
)

type Event struct {
	ID                int64      `db:"id"`
	UserID            int64      `db:"user_id"`
	CalendarID        int64      `db:"calendar_id"`
	CalendarName      string     `db:"calendar_name"`
	CalendarColor     string     `db:"calendar_color"`
	Title             string     `db:"title"`
	Description       *string    `db:"description"`
	StartTime         time.Time  `db:"start_time"`
	EndTime           time.Time  `db:"end_time"`
	IsAllDay          bool       `db:"is_all_day"`
	IsRecurring       bool       `db:"is_recurring"`
	RecurrencePattern *string    `db:"recurrence_pattern"`
	RecurrenceEndDate *time.Time `db:"recurrence_end_date"`
	EventType         EventType  `db:"event_type"`
	Location          *string    `db:"location"`
	IsImportant       bool       `db:"is_important"`
	IsPrivate         bool       `db:"is_private"`
	ReminderMinutes   int        `db:"reminder_minutes"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// ValidTimeRange reports whether the event ends strictly after it starts.
func (e Event) ValidTimeRange() bool {
	return e.EndTime.After(e.StartTime)
}

func (e Event) Duration() time.Duration { return e.EndTime.Sub(e.StartTime) }

func (e Event) IsPast(now time.Time) bool { return e.EndTime.Before(now) }

func (e Event) IsCurrent(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

func (e Event) IsUpcoming(now time.Time) bool { return e.StartTime.After(now) }

type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseTentative ResponseStatus = "tentative"
)

func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseDeclined, ResponseTentative:
		return true
	}
	return false
}

type Participant struct {
	ID             int64          `db:"id"`
	EventID        int64          `db:"event_id"`
	UserID         int64          `db:"user_id"`
	UserFullName   string         `db:"user_full_name"`
	UserEmail      string         `db:"user_email"`
	IsOrganizer    bool           `db:"is_organizer"`
	ResponseStatus ResponseStatus `db:"response_status"`
	JoinedAt       time.Time      `db:"joined_at"`
}

type ReminderType string

const (
	ReminderEmail ReminderType = "email"
	ReminderPush  ReminderType = "push"
	ReminderSMS   ReminderType = "sms"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEmail, ReminderPush, ReminderSMS:
		return true
	}
	return false
}

type Reminder struct {
	ID           int64        `db:"id"`
	EventID      int64        `db:"event_id"`
	ReminderType ReminderType `db:"reminder_type"`
	ReminderTime time.Time    `db:"reminder_time"`
	IsSent       bool         `db:"is_sent"`
	SentAt       *time.Time   `db:"sent_at"`
	CreatedAt    time.Time    `db:"created_at"`
}

// MarkSent moves an unsent reminder to sent. It reports false, leaving the
// reminder unchanged, when it was already sent.
func (r *Reminder) MarkSent(now time.Time) bool {
	if r.IsSent {
		return false
	}
	ts := now
	r.IsSent = true
	r.SentAt = &ts
	return true
}

// EventDetail is an event with its calendar and owned children.
type EventDetail struct {
	Event
	Calendar     Calendar
	Participants []Participant
	Attachments  []Attachment
	Reminders    []Reminder
}

type EventStats struct {
	Total    int64 `db:"total_events"`
	Today    int64 `db:"today_events"`
	Upcoming int64 `db:"upcoming_events"`
	Past     int64 `db:"past_events"`
}

// DayBounds returns [start, end) of the calendar day containing now in loc.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
