package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/repo"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var userUnique = map[string]uniqueField{
	repo.ConstraintUserEmail: {"email", "user with this email already exists."},
	repo.ConstraintUsername:  {"username", "A user with that username already exists."},
}

type RegisterInput struct {
	Email           string
	Username        string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
	PhoneNumber     *string
	BirthDate       *time.Time
	Bio             string
}

// ProfilePatch lists the user-editable profile fields. Unset fields keep
// their stored value.
type ProfilePatch struct {
	Username    dom.Optional[string]
	FirstName   dom.Optional[string]
	LastName    dom.Optional[string]
	PhoneNumber dom.Optional[*string]
	BirthDate   dom.Optional[*time.Time]
	Bio         dom.Optional[string]
}

// UserService handles accounts and credentials.
type UserService struct {
	repo     repo.UserRepo
	hashCost int
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo) *UserService {
	return &UserService{repo: repo, hashCost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// normalizeEmail lowercases the domain part.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// checkPassword applies the password policy and returns the problems found.
func checkPassword(password string, attrs ...string) []string {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	numeric := password != ""
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		problems = append(problems, "This password is entirely numeric.")
	}
	for _, a := range attrs {
		if a != "" && strings.EqualFold(password, a) {
			problems = append(problems, "The password is too similar to your account details.")
			break
		}
	}
	return problems
}

// Register creates a new user with a hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (dom.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	verr := &ValidationError{}
	if in.Password != in.PasswordConfirm {
		verr.Add(NonFieldErrors, "Passwords do not match.")
	}
	localPart, _, _ := strings.Cut(in.Email, "@")
	for _, p := range checkPassword(in.Password, in.Username, in.Email, localPart) {
		verr.Add("password", p)
	}
	if err := verr.OrNil(); err != nil {
		return dom.User{}, err
	}

	hash, err := HashPassword(in.Password, s.hashCost)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, dom.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  in.PhoneNumber,
		BirthDate:    in.BirthDate,
		Bio:          in.Bio,
		PasswordHash: hash,
	})
	if err != nil {
		return dom.User{}, storeErr(err, userUnique)
	}
	return u, nil
}

// Authenticate checks email and password; returns the user if valid.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (dom.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return dom.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return dom.User{}, ErrInactiveAccount
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (dom.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return dom.User{}, storeErr(err, nil)
	}
	return u, nil
}

// IsActive reports whether userID names an existing, active account.
func (s *UserService) IsActive(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

// UpdateProfile applies p over the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, p ProfilePatch) (dom.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return dom.User{}, err
	}
	u.Username = strings.TrimSpace(p.Username.Or(u.Username))
	u.FirstName = strings.TrimSpace(p.FirstName.Or(u.FirstName))
	u.LastName = strings.TrimSpace(p.LastName.Or(u.LastName))
	u.PhoneNumber = p.PhoneNumber.Or(u.PhoneNumber)
	u.BirthDate = p.BirthDate.Or(u.BirthDate)
	u.Bio = p.Bio.Or(u.Bio)
	if u.Username == "" {
		return dom.User{}, fieldError("username", "This field may not be blank.")
	}

	out, err := s.repo.UpdateProfile(ctx, u)
	if err != nil {
		return dom.User{}, storeErr(err, userUnique)
	}
	return out, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	verr := &ValidationError{}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		verr.Add("old_password", "Old password is incorrect.")
	}
	if newPassword != confirm {
		verr.Add(NonFieldErrors, "New passwords do not match.")
	}
	localPart, _, _ := strings.Cut(u.Email, "@")
	for _, p := range checkPassword(newPassword, u.Username, u.Email, localPart) {
		verr.Add("new_password", p)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword, s.hashCost)
	if err != nil {
		return err
	}
	return storeErr(s.repo.SetPassword(ctx, userID, hash), nil)
}
