package dto

import (
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/service"
)

type CalendarRequest struct {
	Name        dom.Optional[string]  `json:"name"`
	Description dom.Optional[*string] `json:"description"`
	Color       dom.Optional[string]  `json:"color"`
	IsDefault   dom.Optional[bool]    `json:"is_default"`
	IsPublic    dom.Optional[bool]    `json:"is_public"`
}

func (r CalendarRequest) Input() (service.CalendarInput, error) {
	verr := &service.ValidationError{}
	checkColor(verr, "color", r.Color.Set, r.Color.Value)
	if err := verr.OrNil(); err != nil {
		return service.CalendarInput{}, err
	}
	return service.CalendarInput{
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		IsDefault:   r.IsDefault,
		IsPublic:    r.IsPublic,
	}, nil
}

// EventRequest is the body for creating and updating events. Without
// calendar_id a new event goes to the default calendar.
type EventRequest struct {
	CalendarID        dom.Optional[*int64]        `json:"calendar_id"`
	Title             dom.Optional[string]        `json:"title"`
	Description       dom.Optional[*string]       `json:"description"`
	StartTime         dom.Optional[FlexTime]      `json:"start_time" swaggertype:"string"`
	EndTime           dom.Optional[FlexTime]      `json:"end_time" swaggertype:"string"`
	IsAllDay          dom.Optional[bool]          `json:"is_all_day"`
	IsRecurring       dom.Optional[bool]          `json:"is_recurring"`
	RecurrencePattern dom.Optional[*string]       `json:"recurrence_pattern"`
	RecurrenceEndDate dom.Optional[FlexTime]      `json:"recurrence_end_date" swaggertype:"string"`
	EventType         dom.Optional[dom.EventType] `json:"event_type" swaggertype:"string"`
	Location          dom.Optional[*string]       `json:"location"`
	IsImportant       dom.Optional[bool]          `json:"is_important"`
	IsPrivate         dom.Optional[bool]          `json:"is_private"`
	ReminderMinutes   dom.Optional[int]           `json:"reminder_minutes"`
}

func (r EventRequest) Input() (service.EventInput, error) {
	verr := &service.ValidationError{}
	if r.Location.Set && r.Location.Value != nil {
		maxLen(verr, "location", dom.Some(*r.Location.Value), 200)
	}
	if r.RecurrencePattern.Set && r.RecurrencePattern.Value != nil {
		maxLen(verr, "recurrence_pattern", dom.Some(*r.RecurrencePattern.Value), 100)
	}
	if err := verr.OrNil(); err != nil {
		return service.EventInput{}, err
	}
	return service.EventInput{
		CalendarID:        r.CalendarID,
		Title:             r.Title,
		Description:       r.Description,
		StartTime:         requiredTime(r.StartTime),
		EndTime:           requiredTime(r.EndTime),
		IsAllDay:          r.IsAllDay,
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: r.RecurrencePattern,
		RecurrenceEndDate: timeOpt(r.RecurrenceEndDate),
		EventType:         r.EventType,
		Location:          r.Location,
		IsImportant:       r.IsImportant,
		IsPrivate:         r.IsPrivate,
		ReminderMinutes:   r.ReminderMinutes,
	}, nil
}

type ParticipantRequest struct {
	User           int64  `json:"user" binding:"required,gt=0"`
	IsOrganizer    bool   `json:"is_organizer"`
	ResponseStatus string `json:"response_status" binding:"omitempty,oneof=pending accepted declined tentative"`
}

func (r ParticipantRequest) Input() service.ParticipantInput {
	return service.ParticipantInput{
		UserID:         r.User,
		IsOrganizer:    r.IsOrganizer,
		ResponseStatus: dom.ResponseStatus(r.ResponseStatus),
	}
}

type ReminderRequest struct {
	ReminderType string    `json:"reminder_type" binding:"omitempty,oneof=email push sms"`
	ReminderTime *FlexTime `json:"reminder_time" binding:"required" swaggertype:"string"`
}

func (r ReminderRequest) Input() service.ReminderInput {
	in := service.ReminderInput{ReminderType: dom.ReminderType(r.ReminderType)}
	if r.ReminderTime != nil {
		in.ReminderTime = r.ReminderTime.Time
	}
	return in
}

type CalendarResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	IsDefault   bool      `json:"is_default"`
	IsPublic    bool      `json:"is_public"`
	EventCount  int64     `json:"event_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewCalendarResponse(c dom.Calendar) CalendarResponse {
	return CalendarResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		IsDefault:   c.IsDefault,
		IsPublic:    c.IsPublic,
		EventCount:  c.EventCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// EventResponse is the list representation of an event.
type EventResponse struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Description   *string       `json:"description"`
	Calendar      int64         `json:"calendar"`
	CalendarName  string        `json:"calendar_name"`
	CalendarColor string        `json:"calendar_color"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Location      *string       `json:"location"`
	IsAllDay      bool          `json:"is_all_day"`
	EventType     dom.EventType `json:"event_type" swaggertype:"string"`
	IsImportant   bool          `json:"is_important"`
	Duration      Duration      `json:"duration" swaggertype:"string"`
	IsPast        bool          `json:"is_past"`
	IsCurrent     bool          `json:"is_current"`
	IsUpcoming    bool          `json:"is_upcoming"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func NewEventResponse(e dom.Event, now time.Time) EventResponse {
	return EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Calendar:      e.CalendarID,
		CalendarName:  e.CalendarName,
		CalendarColor: e.CalendarColor,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		Location:      e.Location,
		IsAllDay:      e.IsAllDay,
		EventType:     e.EventType,
		IsImportant:   e.IsImportant,
		Duration:      Duration{Duration: e.Duration()},
		IsPast:        e.IsPast(now),
		IsCurrent:     e.IsCurrent(now),
		IsUpcoming:    e.IsUpcoming(now),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func NewEventList(list []dom.Event, now time.Time) []EventResponse {
	out := make([]EventResponse, len(list))
	for i := range list {
		out[i] = NewEventResponse(list[i], now)
	}
	return out
}

type ParticipantResponse struct {
	ID             int64              `json:"id"`
	User           int64              `json:"user"`
	UserName       string             `json:"user_name"`
	UserEmail      string             `json:"user_email"`
	IsOrganizer    bool               `json:"is_organizer"`
	ResponseStatus dom.ResponseStatus `json:"response_status" swaggertype:"string"`
	JoinedAt       time.Time          `json:"joined_at"`
}

func NewParticipantResponse(p dom.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:             p.ID,
		User:           p.UserID,
		UserName:       p.UserFullName,
		UserEmail:      p.UserEmail,
		IsOrganizer:    p.IsOrganizer,
		ResponseStatus: p.ResponseStatus,
		JoinedAt:       p.JoinedAt,
	}
}

type ReminderResponse struct {
	ID           int64            `json:"id"`
	ReminderType dom.ReminderType `json:"reminder_type" swaggertype:"string"`
	ReminderTime time.Time        `json:"reminder_time"`
	IsSent       bool             `json:"is_sent"`
	SentAt       *time.Time       `json:"sent_at"`
	CreatedAt    time.Time        `json:"created_at"`
}

func NewReminderResponse(r dom.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:           r.ID,
		ReminderType: r.ReminderType,
		ReminderTime: r.ReminderTime,
		IsSent:       r.IsSent,
		SentAt:       r.SentAt,
		CreatedAt:    r.CreatedAt,
	}
}

// EventDetailResponse is an event with its calendar and children.
type EventDetailResponse struct {
	ID                int64                 `json:"id"`
	Title             string                `json:"title"`
	Description       *string               `json:"description"`
	Calendar          CalendarResponse      `json:"calendar"`
	StartTime         time.Time             `json:"start_time"`
	EndTime           time.Time             `json:"end_time"`
	Location          *string               `json:"location"`
	IsAllDay          bool                  `json:"is_all_day"`
	IsRecurring       bool                  `json:"is_recurring"`
	RecurrencePattern *string               `json:"recurrence_pattern"`
	RecurrenceEndDate *time.Time            `json:"recurrence_end_date"`
	EventType         dom.EventType         `json:"event_type" swaggertype:"string"`
	IsImportant       bool                  `json:"is_important"`
	IsPrivate         bool                  `json:"is_private"`
	ReminderMinutes   int                   `json:"reminder_minutes"`
	Duration          Duration              `json:"duration" swaggertype:"string"`
	IsPast            bool                  `json:"is_past"`
	IsCurrent         bool                  `json:"is_current"`
	IsUpcoming        bool                  `json:"is_upcoming"`
	Participants      []ParticipantResponse `json:"participants"`
	Attachments       []AttachmentResponse  `json:"attachments"`
	Reminders         []ReminderResponse    `json:"reminders"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func NewEventDetailResponse(d dom.EventDetail, now time.Time) EventDetailResponse {
	out := EventDetailResponse{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		Calendar:          NewCalendarResponse(d.Calendar),
		StartTime:         d.StartTime,
		EndTime:           d.EndTime,
		Location:          d.Location,
		IsAllDay:          d.IsAllDay,
		IsRecurring:       d.IsRecurring,
		RecurrencePattern: d.RecurrencePattern,
		RecurrenceEndDate: d.RecurrenceEndDate,
		EventType:         d.EventType,
		IsImportant:       d.IsImportant,
		IsPrivate:         d.IsPrivate,
		ReminderMinutes:   d.ReminderMinutes,
		Duration:          Duration{Duration: d.Event.Duration()},
		IsPast:            d.IsPast(now),
		IsCurrent:         d.IsCurrent(now),
		IsUpcoming:        d.IsUpcoming(now),
		Participants:      make([]ParticipantResponse, len(d.Participants)),
		Attachments:       newAttachments(d.Attachments),
		Reminders:         make([]ReminderResponse, len(d.Reminders)),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	for i := range d.Participants {
		out.Participants[i] = NewParticipantResponse(d.Participants[i])
	}
	for i := range d.Reminders {
		out.Reminders[i] = NewReminderResponse(d.Reminders[i])
	}
	return out
}

type EventStatsResponse struct {
	TotalEvents    int64 `json:"total_events"`
	TodayEvents    int64 `json:"today_events"`
	UpcomingEvents int64 `json:"upcoming_events"`
	PastEvents     int64 `json:"past_events"`
}

func NewEventStatsResponse(s dom.EventStats) EventStatsResponse {
	return EventStatsResponse{
		TotalEvents:    s.Total,
		TodayEvents:    s.Today,
		UpcomingEvents: s.Upcoming,
		PastEvents:     s.Past,
	}
}
