package repo

import (
	"context"
	"strings"

	dom "todocalendar/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

// UserRepo provides user persistence.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (dom.User, error)
	GetByEmail(ctx context.Context, email string) (dom.User, error)
	Create(ctx context.Context, u dom.User) (dom.User, error)
	UpdateProfile(ctx context.Context, u dom.User) (dom.User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

var userColumns = []string{
	"id", "email", "username", "first_name", "last_name", "phone_number", "birth_date",
	"bio", "is_verified", "is_active", "password_hash", "created_at", "updated_at",
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db DBTX
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db DBTX) *PGUserRepo {
	return &PGUserRepo{db: db}
}

func (r *PGUserRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	var u dom.User
	err := get(ctx, r.db, &u, psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	return u, err
}

// GetByEmail matches the login key case-insensitively.
func (r *PGUserRepo) GetByEmail(ctx context.Context, email string) (dom.User, error) {
	var u dom.User
	err := get(ctx, r.db, &u, psql.Select(userColumns...).From("users").
		Where(sq.Expr("LOWER(email) = LOWER(?)", email)))
	return u, err
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, u dom.User) (dom.User, error) {
	q := psql.Insert("users").
		Columns("email", "username", "first_name", "last_name", "phone_number", "birth_date", "bio", "password_hash").
		Values(u.Email, u.Username, u.FirstName, u.LastName, u.PhoneNumber, u.BirthDate, u.Bio, u.PasswordHash).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
	var out dom.User
	err := get(ctx, r.db, &out, q)
	return out, err
}

// UpdateProfile writes the user-editable profile fields.
func (r *PGUserRepo) UpdateProfile(ctx context.Context, u dom.User) (dom.User, error) {
	q := psql.Update("users").
		Set("username", u.Username).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("phone_number", u.PhoneNumber).
		Set("birth_date", u.BirthDate).
		Set("bio", u.Bio).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
	var out dom.User
	err := get(ctx, r.db, &out, q)
	return out, err
}

func (r *PGUserRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return execOne(ctx, r.db, psql.Update("users").
		Set("password_hash", passwordHash).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
}
