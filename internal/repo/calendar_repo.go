package repo

import (
	"context"
	"errors"

	dom "todocalendar/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type CalendarFilter struct {
	Search   string
	Ordering string
}

type CalendarRepo interface {
	List(ctx context.Context, userID int64, f CalendarFilter) ([]dom.Calendar, error)
	Get(ctx context.Context, userID, id int64) (dom.Calendar, error)
	GetDefault(ctx context.Context, userID int64) (dom.Calendar, error)
	Create(ctx context.Context, c dom.Calendar) (int64, error)
	Update(ctx context.Context, c dom.Calendar) error
	Delete(ctx context.Context, userID, id int64) error

	// ClearDefault unsets is_default on every calendar of userID except exceptID.
	ClearDefault(ctx context.Context, userID, exceptID int64) error
	// InsertDefault creates c as the default calendar unless it would break a
	// uniqueness rule, in which case it reports created == false.
	InsertDefault(ctx context.Context, c dom.Calendar) (id int64, created bool, err error)
	// PromoteToDefault flags the user's calendar called name as default.
	PromoteToDefault(ctx context.Context, userID int64, name string) (int64, error)

	// InTx runs fn against a repo bound to a single transaction.
	InTx(ctx context.Context, fn func(CalendarRepo) error) error
}

type PGCalendarRepo struct {
	db DBTX
}

func NewPGCalendarRepo(db DBTX) *PGCalendarRepo {
	return &PGCalendarRepo{db: db}
}

var calendarOrdering = map[string]string{
	"name":       "c.name",
	"created_at": "c.created_at",
}

func calendarSelect() sq.SelectBuilder {
	return psql.Select(
		"c.id", "c.user_id", "c.name", "c.description", "c.color", "c.is_default", "c.is_public",
		"c.created_at", "c.updated_at",
		"(SELECT COUNT(*) FROM events e WHERE e.calendar_id = c.id) AS event_count",
	).From("calendars c")
}

func (r *PGCalendarRepo) List(ctx context.Context, userID int64, f CalendarFilter) ([]dom.Calendar, error) {
	q := calendarSelect().Where(sq.Eq{"c.user_id": userID})
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(sq.Or{sq.ILike{"c.name": p}, sq.ILike{"c.description": p}})
	}
	q = q.OrderBy(orderBy(f.Ordering, calendarOrdering, "c.created_at DESC"), "c.id DESC")
	list := []dom.Calendar{}
	if err := selectAll(ctx, r.db, &list, q); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGCalendarRepo) Get(ctx context.Context, userID, id int64) (dom.Calendar, error) {
	var c dom.Calendar
	err := get(ctx, r.db, &c, calendarSelect().Where(sq.Eq{"c.id": id, "c.user_id": userID}))
	return c, err
}

func (r *PGCalendarRepo) GetDefault(ctx context.Context, userID int64) (dom.Calendar, error) {
	var c dom.Calendar
	err := get(ctx, r.db, &c, calendarSelect().Where(sq.Eq{"c.user_id": userID, "c.is_default": true}))
	return c, err
}

func (r *PGCalendarRepo) Create(ctx context.Context, c dom.Calendar) (int64, error) {
	return insertID(ctx, r.db, psql.Insert("calendars").
		Columns("user_id", "name", "description", "color", "is_default", "is_public").
		Values(c.UserID, c.Name, c.Description, c.Color, c.IsDefault, c.IsPublic))
}

func (r *PGCalendarRepo) Update(ctx context.Context, c dom.Calendar) error {
	return execOne(ctx, r.db, psql.Update("calendars").
		Set("name", c.Name).
		Set("description", c.Description).
		Set("color", c.Color).
		Set("is_default", c.IsDefault).
		Set("is_public", c.IsPublic).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": c.ID, "user_id": c.UserID}))
}

// Delete removes the calendar together with its events.
func (r *PGCalendarRepo) Delete(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.db, psql.Delete("calendars").Where(sq.Eq{"id": id, "user_id": userID}))
}

func (r *PGCalendarRepo) ClearDefault(ctx context.Context, userID, exceptID int64) error {
	query, args, err := psql.Update("calendars").
		Set("is_default", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"user_id": userID, "is_default": true}).
		Where(sq.NotEq{"id": exceptID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return mapErr(err)
}

func (r *PGCalendarRepo) InsertDefault(ctx context.Context, c dom.Calendar) (int64, bool, error) {
	const query = `
		INSERT INTO calendars (user_id, name, description, color, is_default)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT DO NOTHING
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query, c.UserID, c.Name, c.Description, c.Color))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *PGCalendarRepo) PromoteToDefault(ctx context.Context, userID int64, name string) (int64, error) {
	const query = `
		UPDATE calendars SET is_default = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND name = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query, userID, name))
	return id, err
}

func (r *PGCalendarRepo) InTx(ctx context.Context, fn func(CalendarRepo) error) error {
	return withTx(ctx, r.db, func(tx DBTX) error {
		return fn(&PGCalendarRepo{db: tx})
	})
}
