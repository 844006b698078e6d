package domain

import (
	"strings"
	"time"
)

// User is the domain entity for a user account. Email is the login key.
type User struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	Username     string     `db:"username"`
	FirstName    string     `db:"first_name"`
	LastName     string     `db:"last_name"`
	PhoneNumber  *string    `db:"phone_number"`
	BirthDate    *time.Time `db:"birth_date"`
	Bio          string     `db:"bio"`
	IsVerified   bool       `db:"is_verified"`
	IsActive     bool       `db:"is_active"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
