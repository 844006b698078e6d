package repo

import (
	"context"

	dom "todocalendar/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

type CategoryFilter struct {
	Search   string
	Ordering string
}

type CategoryRepo interface {
	List(ctx context.Context, userID int64, f CategoryFilter) ([]dom.Category, error)
	Get(ctx context.Context, userID, id int64) (dom.Category, error)
	Create(ctx context.Context, c dom.Category) (int64, error)
	Update(ctx context.Context, c dom.Category) error
	Delete(ctx context.Context, userID, id int64) error
}

type PGCategoryRepo struct {
	db DBTX
}

func NewPGCategoryRepo(db DBTX) *PGCategoryRepo {
	return &PGCategoryRepo{db: db}
}

var categoryOrdering = map[string]string{
	"name":       "c.name",
	"created_at": "c.created_at",
}

func categorySelect() sq.SelectBuilder {
	return psql.Select(
		"c.id", "c.user_id", "c.name", "c.color", "c.created_at", "c.updated_at",
		"(SELECT COUNT(*) FROM todos t WHERE t.category_id = c.id) AS todo_count",
	).From("categories c")
}

func (r *PGCategoryRepo) List(ctx context.Context, userID int64, f CategoryFilter) ([]dom.Category, error) {
	q := categorySelect().Where(sq.Eq{"c.user_id": userID})
	if f.Search != "" {
		q = q.Where(sq.ILike{"c.name": likePattern(f.Search)})
	}
	q = q.OrderBy(orderBy(f.Ordering, categoryOrdering, "c.created_at DESC"), "c.id DESC")
	list := []dom.Category{}
	if err := selectAll(ctx, r.db, &list, q); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGCategoryRepo) Get(ctx context.Context, userID, id int64) (dom.Category, error) {
	var c dom.Category
	err := get(ctx, r.db, &c, categorySelect().Where(sq.Eq{"c.id": id, "c.user_id": userID}))
	return c, err
}

func (r *PGCategoryRepo) Create(ctx context.Context, c dom.Category) (int64, error) {
	return insertID(ctx, r.db, psql.Insert("categories").
		Columns("user_id", "name", "color").
		Values(c.UserID, c.Name, c.Color))
}

func (r *PGCategoryRepo) Update(ctx context.Context, c dom.Category) error {
	return execOne(ctx, r.db, psql.Update("categories").
		Set("name", c.Name).
		Set("color", c.Color).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": c.ID, "user_id": c.UserID}))
}

// Delete removes the category; its todos keep existing with no category.
func (r *PGCategoryRepo) Delete(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.db, psql.Delete("categories").Where(sq.Eq{"id": id, "user_id": userID}))
}
