package repo

import (
	"context"
	"time"

	dom "todocalendar/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// TodoFilter narrows an owner-scoped todo listing. Nil fields do not filter.
type TodoFilter struct {
	IsCompleted *bool
	Priority    *dom.Priority
	IsImportant *bool
	CategoryID  *int64
	Search      string
	Ordering    string
	DueFrom     *time.Time
	DueTo       *time.Time
}

type TodoRepo interface {
	List(ctx context.Context, userID int64, f TodoFilter) ([]dom.Todo, error)
	Get(ctx context.Context, userID, id int64) (dom.Todo, error)
	Create(ctx context.Context, t dom.Todo) (int64, error)
	Update(ctx context.Context, t dom.Todo) error
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64, now time.Time) (dom.TodoStats, error)

	AddComment(ctx context.Context, userID int64, c dom.TodoComment) (int64, error)
	ListComments(ctx context.Context, userID, todoID int64) ([]dom.TodoComment, error)
	GetComment(ctx context.Context, userID, id int64) (dom.TodoComment, error)
	AddAttachment(ctx context.Context, userID int64, a dom.Attachment) (int64, error)
	ListAttachments(ctx context.Context, userID, todoID int64) ([]dom.Attachment, error)
}

type PGTodoRepo struct {
	db DBTX
}

func NewPGTodoRepo(db DBTX) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

var todoOrdering = map[string]string{
	"title":      "t.title",
	"created_at": "t.created_at",
	"due_date":   "t.due_date",
	"priority":   "CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 4 END",
}

func todoSelect() sq.SelectBuilder {
	return psql.Select(
		"t.id", "t.user_id", "t.category_id", "c.name AS category_name", "c.color AS category_color",
		"t.title", "t.description", "t.is_completed", "t.priority", "t.due_date", "t.completed_at",
		"t.is_important", "t.is_starred", "t.estimated_duration", "t.actual_duration",
		"t.created_at", "t.updated_at",
	).From("todos t").LeftJoin("categories c ON c.id = t.category_id")
}

func (r *PGTodoRepo) List(ctx context.Context, userID int64, f TodoFilter) ([]dom.Todo, error) {
	q := todoSelect().Where(sq.Eq{"t.user_id": userID})
	if f.IsCompleted != nil {
		q = q.Where(sq.Eq{"t.is_completed": *f.IsCompleted})
	}
	if f.Priority != nil {
		q = q.Where(sq.Eq{"t.priority": string(*f.Priority)})
	}
	if f.IsImportant != nil {
		q = q.Where(sq.Eq{"t.is_important": *f.IsImportant})
	}
	if f.CategoryID != nil {
		q = q.Where(sq.Eq{"t.category_id": *f.CategoryID})
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(sq.Or{sq.ILike{"t.title": p}, sq.ILike{"t.description": p}})
	}
	if f.DueFrom != nil {
		q = q.Where(sq.GtOrEq{"t.due_date": *f.DueFrom})
	}
	if f.DueTo != nil {
		q = q.Where(sq.LtOrEq{"t.due_date": *f.DueTo})
	}
	q = q.OrderBy(orderBy(f.Ordering, todoOrdering, "t.created_at DESC"), "t.id DESC")

	list := []dom.Todo{}
	if err := selectAll(ctx, r.db, &list, q); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGTodoRepo) Get(ctx context.Context, userID, id int64) (dom.Todo, error) {
	var t dom.Todo
	err := get(ctx, r.db, &t, todoSelect().Where(sq.Eq{"t.id": id, "t.user_id": userID}))
	return t, err
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (int64, error) {
	return insertID(ctx, r.db, psql.Insert("todos").
		Columns("user_id", "category_id", "title", "description", "is_completed", "priority",
			"due_date", "completed_at", "is_important", "is_starred", "estimated_duration", "actual_duration").
		Values(t.UserID, t.CategoryID, t.Title, t.Description, t.IsCompleted, string(t.Priority),
			t.DueDate, t.CompletedAt, t.IsImportant, t.IsStarred, t.EstimatedSeconds, t.ActualSeconds))
}

// Update writes every mutable column of t, scoped to its owner.
func (r *PGTodoRepo) Update(ctx context.Context, t dom.Todo) error {
	return execOne(ctx, r.db, psql.Update("todos").
		Set("category_id", t.CategoryID).
		Set("title", t.Title).
		Set("description", t.Description).
		Set("is_completed", t.IsCompleted).
		Set("priority", string(t.Priority)).
		Set("due_date", t.DueDate).
		Set("completed_at", t.CompletedAt).
		Set("is_important", t.IsImportant).
		Set("is_starred", t.IsStarred).
		Set("estimated_duration", t.EstimatedSeconds).
		Set("actual_duration", t.ActualSeconds).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": t.ID, "user_id": t.UserID}))
}

func (r *PGTodoRepo) Delete(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.db, psql.Delete("todos").Where(sq.Eq{"id": id, "user_id": userID}))
}

// Stats counts the owner's todos; overdue compares full timestamps with now.
func (r *PGTodoRepo) Stats(ctx context.Context, userID int64, now time.Time) (dom.TodoStats, error) {
	q := psql.Select(
		"COUNT(*) AS total_todos",
		"COUNT(*) FILTER (WHERE is_completed) AS completed_todos",
		"COUNT(*) FILTER (WHERE NOT is_completed) AS pending_todos",
		"COUNT(*) FILTER (WHERE priority = 'high') AS high_priority_todos",
	).Column(sq.Expr("COUNT(*) FILTER (WHERE NOT is_completed AND due_date < ?) AS overdue_todos", now)).
		From("todos").Where(sq.Eq{"user_id": userID})
	var s dom.TodoStats
	err := get(ctx, r.db, &s, q)
	return s, err
}

// AddComment inserts a comment only when the parent todo belongs to userID;
// otherwise it reports ErrNotFound.
func (r *PGTodoRepo) AddComment(ctx context.Context, userID int64, c dom.TodoComment) (int64, error) {
	const query = `
		INSERT INTO todo_comments (todo_id, user_id, comment)
		SELECT t.id, $2, $3 FROM todos t WHERE t.id = $1 AND t.user_id = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query, c.TodoID, userID, c.Comment))
	return id, err
}

func commentSelect(userID int64) sq.SelectBuilder {
	return psql.Select(
		"tc.id", "tc.todo_id", "tc.user_id", "u.username AS user_username",
		"TRIM(u.first_name || ' ' || u.last_name) AS user_full_name",
		"tc.comment", "tc.created_at", "tc.updated_at",
	).From("todo_comments tc").
		Join("todos t ON t.id = tc.todo_id").
		Join("users u ON u.id = tc.user_id").
		Where(sq.Eq{"t.user_id": userID})
}

func (r *PGTodoRepo) ListComments(ctx context.Context, userID, todoID int64) ([]dom.TodoComment, error) {
	list := []dom.TodoComment{}
	err := selectAll(ctx, r.db, &list, commentSelect(userID).
		Where(sq.Eq{"tc.todo_id": todoID}).OrderBy("tc.created_at DESC", "tc.id DESC"))
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGTodoRepo) GetComment(ctx context.Context, userID, id int64) (dom.TodoComment, error) {
	var c dom.TodoComment
	err := get(ctx, r.db, &c, commentSelect(userID).Where(sq.Eq{"tc.id": id}))
	return c, err
}

// AddAttachment records a stored file under a todo owned by userID.
func (r *PGTodoRepo) AddAttachment(ctx context.Context, userID int64, a dom.Attachment) (int64, error) {
	const query = `
		INSERT INTO todo_attachments (todo_id, filename, file, file_size)
		SELECT t.id, $3, $4, $5 FROM todos t WHERE t.id = $1 AND t.user_id = $2
		RETURNING id`
	var id int64
	err := mapErr(sqlx.GetContext(ctx, r.db, &id, query, a.ParentID, userID, a.Filename, a.File, a.FileSize))
	return id, err
}

func (r *PGTodoRepo) ListAttachments(ctx context.Context, userID, todoID int64) ([]dom.Attachment, error) {
	list := []dom.Attachment{}
	err := selectAll(ctx, r.db, &list, psql.Select(
		"a.id", "a.todo_id AS parent_id", "a.filename", "a.file", "a.file_size", "a.uploaded_at",
	).From("todo_attachments a").
		Join("todos t ON t.id = a.todo_id").
		Where(sq.Eq{"a.todo_id": todoID, "t.user_id": userID}).
		OrderBy("a.uploaded_at", "a.id"))
	if err != nil {
		return nil, err
	}
	return list, nil
}
