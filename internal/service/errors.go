package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"todocalendar/internal/repo"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("user account is disabled")
)

// ValidationError carries field-level messages. The "non_field_errors" key
// holds messages that belong to the payload as a whole.
type ValidationError struct {
	Fields map[string][]string
}

const NonFieldErrors = "non_field_errors"

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add appends msg to field, allocating the map on first use.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns e when it has at least one message.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// uniqueField names the payload field a unique constraint guards.
type uniqueField struct {
	field, msg string
}

// constraintFields maps foreign key and check constraints to the payload
// field they guard. The services validate these up front; the database only
// reports them when a referenced row disappears mid-request.
var constraintFields = map[string]uniqueField{
	repo.ConstraintTodoCategory:    {"category_id", "Invalid pk - object does not exist."},
	repo.ConstraintEventCalendar:   {"calendar_id", "Invalid pk - object does not exist."},
	repo.ConstraintParticipantUser: {"user", "Invalid pk - object does not exist."},
	repo.ConstraintEventTimeRange:  {"end_time", "End time must be after start time."},
	repo.ConstraintReminderMinutes: {"reminder_minutes", "Ensure this value is between 1 and 10080."},
	repo.ConstraintTodoPriority:    {"priority", "Not a valid choice."},
	repo.ConstraintEventType:       {"event_type", "Not a valid choice."},
	repo.ConstraintResponseStatus:  {"response_status", "Not a valid choice."},
	repo.ConstraintReminderType:    {"reminder_type", "Not a valid choice."},
}

// storeErr translates repo sentinels into service ones. Unique violations on
// the constraints listed in fields become field errors. A broken reference
// without a known field means the parent vanished; any other check
// violation is reported as a non-field validation error.
func storeErr(err error, fields map[string]uniqueField) error {
	var constraint string
	if ce := (*repo.ConstraintError)(nil); errors.As(err, &ce) {
		constraint = ce.Constraint
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrConflict):
		if f, ok := fields[constraint]; ok {
			return fieldError(f.field, f.msg)
		}
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repo.ErrReference):
		if f, ok := constraintFields[constraint]; ok {
			return fieldError(f.field, f.msg)
		}
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repo.ErrInvalid):
		if f, ok := constraintFields[constraint]; ok {
			return fieldError(f.field, f.msg)
		}
		return fieldError(NonFieldErrors, "Invalid data.")
	}
	return err
}
