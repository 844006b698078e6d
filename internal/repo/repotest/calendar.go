package repotest

import (
	"context"
	"errors"
	"maps"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/repo"
)

// ErrCheckViolation stands in for a failed table CHECK constraint.
var ErrCheckViolation = errors.New("check constraint violated")

type CalendarRepo struct {
	s    *Store
	inTx bool
}

var _ repo.CalendarRepo = (*CalendarRepo)(nil)

func (r *CalendarRepo) withCountLocked(c dom.Calendar) dom.Calendar {
	c.EventCount = 0
	for _, e := range r.s.events {
		if e.CalendarID == c.ID {
			c.EventCount++
		}
	}
	return c
}

func (r *CalendarRepo) List(_ context.Context, userID int64, f repo.CalendarFilter) ([]dom.Calendar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Calendar{}
	for _, c := range r.s.calendars {
		if c.UserID != userID || (f.Search != "" && !contains(&c.Name, f.Search) && !contains(c.Description, f.Search)) {
			continue
		}
		list = append(list, r.withCountLocked(c))
	}
	field, desc := ordering(f.Ordering)
	id := func(c dom.Calendar) int64 { return c.ID }
	switch field {
	case "name":
		sortBy(list, desc, func(a, b dom.Calendar) int {
			switch {
			case a.Name < b.Name:
				return -1
			case a.Name > b.Name:
				return 1
			}
			return 0
		}, id)
	case "created_at":
		sortBy(list, desc, func(a, b dom.Calendar) int { return 0 }, id)
	default:
		sortBy(list, true, func(a, b dom.Calendar) int { return 0 }, id)
	}
	return list, nil
}

func (r *CalendarRepo) Get(_ context.Context, userID, id int64) (dom.Calendar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.calendars[id]
	if !ok || c.UserID != userID {
		return dom.Calendar{}, repo.ErrNotFound
	}
	return r.withCountLocked(c), nil
}

func (r *CalendarRepo) GetDefault(_ context.Context, userID int64) (dom.Calendar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.calendars {
		if c.UserID == userID && c.IsDefault {
			return r.withCountLocked(c), nil
		}
	}
	return dom.Calendar{}, repo.ErrNotFound
}

func (r *CalendarRepo) uniqueLocked(c dom.Calendar) error {
	for _, o := range r.s.calendars {
		if o.ID == c.ID || o.UserID != c.UserID {
			continue
		}
		if o.Name == c.Name {
			return conflict(repo.ConstraintCalendarName)
		}
		if o.IsDefault && c.IsDefault {
			return conflict(repo.ConstraintCalendarDefault)
		}
	}
	return nil
}

func (r *CalendarRepo) Create(_ context.Context, c dom.Calendar) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(c); err != nil {
		return 0, err
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.calendars[c.ID] = c
	return c.ID, nil
}

func (r *CalendarRepo) Update(_ context.Context, c dom.Calendar) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.calendars[c.ID]
	if !ok || cur.UserID != c.UserID {
		return repo.ErrNotFound
	}
	if err := r.uniqueLocked(c); err != nil {
		return err
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = r.s.Now()
	r.s.calendars[c.ID] = c
	return nil
}

func (r *CalendarRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.calendars[id]
	if !ok || c.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.calendars, id)
	for eid, e := range r.s.events {
		if e.CalendarID == id {
			delete(r.s.events, eid)
		}
	}
	return nil
}

func (r *CalendarRepo) ClearDefault(_ context.Context, userID, exceptID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.calendars {
		if c.UserID == userID && c.IsDefault && id != exceptID {
			c.IsDefault = false
			r.s.calendars[id] = c
		}
	}
	return nil
}

func (r *CalendarRepo) InsertDefault(_ context.Context, c dom.Calendar) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.IsDefault = true
	if err := r.uniqueLocked(c); err != nil {
		return 0, false, nil
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.calendars[c.ID] = c
	return c.ID, true, nil
}

func (r *CalendarRepo) PromoteToDefault(_ context.Context, userID int64, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.calendars {
		if c.UserID != userID || c.Name != name {
			continue
		}
		c.IsDefault = true
		if err := r.uniqueLocked(c); err != nil {
			return 0, err
		}
		r.s.calendars[id] = c
		return id, nil
	}
	return 0, repo.ErrNotFound
}

// InTx serialises fn against other transactions and restores the calendar
// table when fn fails.
func (r *CalendarRepo) InTx(ctx context.Context, fn func(repo.CalendarRepo) error) error {
	if r.inTx {
		return fn(r)
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	r.s.mu.Lock()
	snapshot := maps.Clone(r.s.calendars)
	r.s.mu.Unlock()

	if err := fn(&CalendarRepo{s: r.s, inTx: true}); err != nil {
		r.s.mu.Lock()
		r.s.calendars = snapshot
		r.s.mu.Unlock()
		return err
	}
	return nil
}

// --- events ---

type EventRepo struct{ s *Store }

var _ repo.EventRepo = (*EventRepo)(nil)

func (r *EventRepo) joinLocked(e dom.Event) dom.Event {
	c := r.s.calendars[e.CalendarID]
	e.CalendarName, e.CalendarColor = c.Name, c.Color
	return e
}

func (r *EventRepo) List(_ context.Context, userID int64, f repo.EventFilter) ([]dom.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Event{}
	for _, e := range r.s.events {
		switch {
		case e.UserID != userID,
			f.CalendarID != nil && e.CalendarID != *f.CalendarID,
			f.IsAllDay != nil && e.IsAllDay != *f.IsAllDay,
			f.Search != "" && !contains(&e.Title, f.Search) && !contains(e.Description, f.Search) && !contains(e.Location, f.Search),
			f.StartFrom != nil && e.StartTime.Before(*f.StartFrom),
			f.StartBefore != nil && !e.StartTime.Before(*f.StartBefore),
			f.StartUntil != nil && e.StartTime.After(*f.StartUntil):
			continue
		}
		list = append(list, r.joinLocked(e))
	}
	field, desc := ordering(f.Ordering)
	id := func(e dom.Event) int64 { return e.ID }
	switch field {
	case "title":
		sortBy(list, desc, func(a, b dom.Event) int {
			switch {
			case a.Title < b.Title:
				return -1
			case a.Title > b.Title:
				return 1
			}
			return 0
		}, id)
	case "created_at":
		sortBy(list, desc, func(a, b dom.Event) int { return 0 }, id)
	case "start_time":
		sortBy(list, desc, func(a, b dom.Event) int { return a.StartTime.Compare(b.StartTime) }, id)
	default:
		sortBy(list, true, func(a, b dom.Event) int { return a.StartTime.Compare(b.StartTime) }, id)
	}
	return list, nil
}

func (r *EventRepo) Get(_ context.Context, userID, id int64) (dom.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || e.UserID != userID {
		return dom.Event{}, repo.ErrNotFound
	}
	return r.joinLocked(e), nil
}

func (r *EventRepo) checkLocked(e dom.Event) error {
	if !e.ValidTimeRange() {
		return ErrCheckViolation
	}
	c, ok := r.s.calendars[e.CalendarID]
	if !ok || c.UserID != e.UserID {
		return ErrCheckViolation
	}
	return nil
}

func (r *EventRepo) Create(_ context.Context, e dom.Event) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkLocked(e); err != nil {
		return 0, err
	}
	e.ID = r.s.nextID()
	e.CreatedAt = r.s.Now()
	e.UpdatedAt = e.CreatedAt
	r.s.events[e.ID] = e
	return e.ID, nil
}

func (r *EventRepo) Update(_ context.Context, e dom.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.events[e.ID]
	if !ok || cur.UserID != e.UserID {
		return repo.ErrNotFound
	}
	if err := r.checkLocked(e); err != nil {
		return err
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = r.s.Now()
	r.s.events[e.ID] = e
	return nil
}

func (r *EventRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || e.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

func (r *EventRepo) Stats(_ context.Context, userID int64, dayStart, dayEnd time.Time) (dom.EventStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st dom.EventStats
	for _, e := range r.s.events {
		if e.UserID != userID {
			continue
		}
		st.Total++
		switch {
		case e.StartTime.Before(dayStart):
			st.Past++
		case e.StartTime.Before(dayEnd):
			st.Today++
		default:
			st.Upcoming++
		}
	}
	return st, nil
}

func (r *EventRepo) ownedLocked(userID, eventID int64) bool {
	e, ok := r.s.events[eventID]
	return ok && e.UserID == userID
}

func (r *EventRepo) AddParticipant(_ context.Context, userID int64, p dom.Participant) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.ownedLocked(userID, p.EventID) {
		return 0, repo.ErrNotFound
	}
	for _, o := range r.s.participants {
		if o.EventID == p.EventID && o.UserID == p.UserID {
			return 0, conflict(repo.ConstraintParticipantPair)
		}
	}
	p.ID = r.s.nextID()
	p.JoinedAt = r.s.Now()
	r.s.participants[p.ID] = p
	return p.ID, nil
}

func (r *EventRepo) participantLocked(p dom.Participant) dom.Participant {
	u := r.s.users[p.UserID]
	p.UserFullName, p.UserEmail = fullName(u), u.Email
	return p
}

func (r *EventRepo) ListParticipants(_ context.Context, userID, eventID int64) ([]dom.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Participant{}
	if !r.ownedLocked(userID, eventID) {
		return list, nil
	}
	for _, p := range r.s.participants {
		if p.EventID == eventID {
			list = append(list, r.participantLocked(p))
		}
	}
	sortBy(list, false, func(a, b dom.Participant) int { return 0 }, func(p dom.Participant) int64 { return p.ID })
	return list, nil
}

func (r *EventRepo) GetParticipant(_ context.Context, userID, id int64) (dom.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok || !r.ownedLocked(userID, p.EventID) {
		return dom.Participant{}, repo.ErrNotFound
	}
	return r.participantLocked(p), nil
}

func (r *EventRepo) AddAttachment(_ context.Context, userID int64, a dom.Attachment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.ownedLocked(userID, a.ParentID) {
		return 0, repo.ErrNotFound
	}
	a.ID = r.s.nextID()
	a.UploadedAt = r.s.Now()
	r.s.eventFiles[a.ID] = a
	return a.ID, nil
}

func (r *EventRepo) ListAttachments(_ context.Context, userID, eventID int64) ([]dom.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return attachmentsLocked(r.s.eventFiles, eventID, r.ownedLocked(userID, eventID)), nil
}

func (r *EventRepo) AddReminder(_ context.Context, userID int64, rem dom.Reminder) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.ownedLocked(userID, rem.EventID) {
		return 0, repo.ErrNotFound
	}
	rem.ID = r.s.nextID()
	rem.CreatedAt = r.s.Now()
	r.s.reminders[rem.ID] = rem
	return rem.ID, nil
}

func (r *EventRepo) ListReminders(_ context.Context, userID, eventID int64) ([]dom.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Reminder{}
	if !r.ownedLocked(userID, eventID) {
		return list, nil
	}
	for _, rem := range r.s.reminders {
		if rem.EventID == eventID {
			list = append(list, rem)
		}
	}
	sortBy(list, false, func(a, b dom.Reminder) int { return a.ReminderTime.Compare(b.ReminderTime) },
		func(rem dom.Reminder) int64 { return rem.ID })
	return list, nil
}

func (r *EventRepo) GetReminder(_ context.Context, userID, eventID, id int64) (dom.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[id]
	if !ok || rem.EventID != eventID || !r.ownedLocked(userID, eventID) {
		return dom.Reminder{}, repo.ErrNotFound
	}
	return rem, nil
}

func (r *EventRepo) MarkReminderSent(_ context.Context, userID, eventID, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[id]
	if !ok || rem.EventID != eventID || !r.ownedLocked(userID, eventID) {
		return nil
	}
	if rem.MarkSent(at) {
		r.s.reminders[id] = rem
	}
	return nil
}
