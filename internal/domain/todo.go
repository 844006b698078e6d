package domain

import (
	"math"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Todo is a task owned by one user. CategoryName and CategoryColor are
// joined in by the repository.
type Todo struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	CategoryID    *int64     `db:"category_id"`
	CategoryName  *string    `db:"category_name"`
	CategoryColor *string    `db:"category_color"`
	Title         string     `db:"title"`
	Description   *string    `db:"description"`
	IsCompleted   bool       `db:"is_completed"`
	Priority      Priority   `db:"priority"`
	DueDate       *time.Time `db:"due_date"`
	CompletedAt   *time.Time `db:"completed_at"`
	IsImportant   bool       `db:"is_important"`
	IsStarred     bool       `db:"is_starred"`
	// Durations are stored as whole seconds.
	EstimatedSeconds *int64 `db:"estimated_duration"`
	ActualSeconds    *int64 `db:"actual_duration"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SetCompleted applies the completion flag and keeps CompletedAt in step with
// it: set on false->true, cleared on true->false, untouched otherwise.
func (t *Todo) SetCompleted(completed bool, now time.Time) {
	switch {
	case completed && t.CompletedAt == nil:
		ts := now
		t.CompletedAt = &ts
	case !completed:
		t.CompletedAt = nil
	}
	t.IsCompleted = completed
}

// Toggle flips the completion flag.
func (t *Todo) Toggle(now time.Time) {
	t.SetCompleted(!t.IsCompleted, now)
}

// IsOverdue reports a due date strictly before now on an open todo.
func (t Todo) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && !t.IsCompleted && t.DueDate.Before(now)
}

// DaysUntilDue is the whole-day difference between the due date and now,
// floored like a timedelta's days. Nil without a due date or once completed.
func (t Todo) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil || t.IsCompleted {
		return nil
	}
	days := int(math.Floor(t.DueDate.Sub(now).Hours() / 24))
	return &days
}

func (t Todo) EstimatedDuration() *time.Duration { return seconds(t.EstimatedSeconds) }
func (t Todo) ActualDuration() *time.Duration    { return seconds(t.ActualSeconds) }

// Duration prefers the actual duration over the estimate.
func (t Todo) Duration() *time.Duration {
	if d := t.ActualDuration(); d != nil {
		return d
	}
	return t.EstimatedDuration()
}

func seconds(s *int64) *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s) * time.Second
	return &d
}

type TodoComment struct {
	ID           int64     `db:"id"`
	TodoID       int64     `db:"todo_id"`
	UserID       int64     `db:"user_id"`
	UserUsername string    `db:"user_username"`
	UserFullName string    `db:"user_full_name"`
	Comment      string    `db:"comment"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Attachment is a stored file hanging off a todo or an event.
type Attachment struct {
	ID         int64     `db:"id"`
	ParentID   int64     `db:"parent_id"`
	Filename   string    `db:"filename"`
	File       string    `db:"file"`
	FileSize   int64     `db:"file_size"`
	UploadedAt time.Time `db:"uploaded_at"`
}

// TodoDetail is a todo with its owned children.
type TodoDetail struct {
	Todo
	Category    *Category
	Comments    []TodoComment
	Attachments []Attachment
}

type TodoStats struct {
	Total        int64 `db:"total_todos"`
	Completed    int64 `db:"completed_todos"`
	Pending      int64 `db:"pending_todos"`
	HighPriority int64 `db:"high_priority_todos"`
	Overdue      int64 `db:"overdue_todos"`
}

type Category struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	TodoCount int64     `db:"todo_count"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const DefaultColor = "#007bff"
