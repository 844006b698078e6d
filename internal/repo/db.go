package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"todocalendar/internal/utils"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("unique constraint violation")
	ErrReference = errors.New("foreign key violation")
	ErrInvalid   = errors.New("check constraint violation")
)

// Constraint names from the migrations. Services use them to tell which
// rule a write broke.
const (
	ConstraintUserEmail       = "users_email_key"
	ConstraintUsername        = "users_username_key"
	ConstraintCategoryName    = "categories_user_id_name_key"
	ConstraintCalendarName    = "calendars_user_id_name_key"
	ConstraintCalendarDefault = "calendars_one_default_per_user"
	ConstraintParticipantPair = "event_participants_event_id_user_id_key"

	ConstraintTodoCategory    = "todos_category_id_fkey"
	ConstraintEventCalendar   = "events_calendar_id_fkey"
	ConstraintParticipantUser = "event_participants_user_id_fkey"

	ConstraintEventTimeRange  = "events_time_range_check"
	ConstraintReminderMinutes = "events_reminder_minutes_check"
	ConstraintTodoCompletedAt = "todos_completed_at_check"
	ConstraintTodoPriority    = "todos_priority_check"
	ConstraintEventType       = "events_event_type_check"
	ConstraintResponseStatus  = "event_participants_response_status_check"
	ConstraintReminderType    = "event_reminders_reminder_type_check"
)

// ConstraintError is returned when a write breaks a table constraint. It
// matches Kind: ErrConflict, ErrReference or ErrInvalid.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v on %s: %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == e.Kind }

// IsConstraint reports whether err is a ConstraintError on the named constraint.
func IsConstraint(err error, name string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == name
}

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// mapErr turns driver errors into repo sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var kind error
	switch {
	case utils.IsPGUniqueViolation(err):
		kind = ErrConflict
	case utils.IsPGForeignKeyViolation(err):
		kind = ErrReference
	case utils.IsPGCheckViolation(err):
		kind = ErrInvalid
	default:
		return err
	}
	return &ConstraintError{Kind: kind, Constraint: utils.PGConstraintName(err), Err: err}
}

func get(ctx context.Context, db DBTX, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return mapErr(sqlx.GetContext(ctx, db, dest, query, args...))
}

func selectAll(ctx context.Context, db DBTX, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return mapErr(sqlx.SelectContext(ctx, db, dest, query, args...))
}

// execOne runs a write that must touch exactly one row; zero rows means the
// target does not exist for this owner.
func execOne(ctx context.Context, db DBTX, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insertID runs an INSERT ... RETURNING id.
func insertID(ctx context.Context, db DBTX, b sq.InsertBuilder) (int64, error) {
	var id int64
	if err := get(ctx, db, &id, b.Suffix("RETURNING id")); err != nil {
		return 0, err
	}
	return id, nil
}

// withTx runs fn inside a transaction on db, or directly when db already is one.
func withTx(ctx context.Context, db DBTX, fn func(DBTX) error) error {
	root, ok := db.(*sqlx.DB)
	if !ok {
		return fn(db)
	}
	tx, err := root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapErr(err))
	}
	return nil
}

// orderBy resolves a DRF-style ordering parameter ("name", "-created_at")
// against an allow-list; unknown fields fall back to def.
func orderBy(param string, allowed map[string]string, def string) string {
	desc := false
	field := param
	if len(field) > 0 && field[0] == '-' {
		desc = true
		field = field[1:]
	}
	expr, ok := allowed[field]
	if !ok {
		return def
	}
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern builds a substring pattern for ILIKE. Wildcards in q match
// literally under Postgres' default backslash escape.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
