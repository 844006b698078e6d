package dto

import (
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/service"
)

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Email           string  `json:"email" binding:"required,email,max=254"`
	Username        string  `json:"username" binding:"required,max=150"`
	FirstName       string  `json:"first_name" binding:"required,max=150"`
	LastName        string  `json:"last_name" binding:"required,max=150"`
	Password        string  `json:"password" binding:"required"`
	PasswordConfirm string  `json:"password_confirm" binding:"required"`
	PhoneNumber     *string `json:"phone_number" binding:"omitempty,max=17"`
	BirthDate       *Date   `json:"birth_date"`
	Bio             string  `json:"bio" binding:"max=500"`
}

func (r RegisterRequest) Input() service.RegisterInput {
	in := service.RegisterInput{
		Email:           r.Email,
		Username:        r.Username,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		PhoneNumber:     r.PhoneNumber,
		Bio:             r.Bio,
	}
	if r.BirthDate != nil {
		in.BirthDate = r.BirthDate.Ptr()
	}
	return in
}

// ProfileRequest is the body for PUT and PATCH /auth/profile. Read-only
// fields such as email are ignored.
type ProfileRequest struct {
	Username    dom.Optional[string]  `json:"username"`
	FirstName   dom.Optional[string]  `json:"first_name"`
	LastName    dom.Optional[string]  `json:"last_name"`
	PhoneNumber dom.Optional[*string] `json:"phone_number"`
	BirthDate   dom.Optional[Date]    `json:"birth_date"`
	Bio         dom.Optional[string]  `json:"bio"`
}

func (r ProfileRequest) Input() (service.ProfilePatch, error) {
	verr := &service.ValidationError{}
	maxLen(verr, "username", r.Username, 150)
	maxLen(verr, "first_name", r.FirstName, 150)
	maxLen(verr, "last_name", r.LastName, 150)
	maxLen(verr, "bio", r.Bio, 500)
	if r.PhoneNumber.Set && r.PhoneNumber.Value != nil && len(*r.PhoneNumber.Value) > 17 {
		verr.Add("phone_number", "Ensure this field has no more than 17 characters.")
	}
	if err := verr.OrNil(); err != nil {
		return service.ProfilePatch{}, err
	}
	return service.ProfilePatch{
		Username:    r.Username,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		BirthDate:   dateOpt(r.BirthDate),
		Bio:         r.Bio,
	}, nil
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

// RefreshRequest carries a refresh token for /auth/token/refresh and
// /auth/logout.
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type UserResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	PhoneNumber *string   `json:"phone_number"`
	BirthDate   *Date     `json:"birth_date" swaggertype:"string"`
	Bio         string    `json:"bio"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewUserResponse(u dom.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		PhoneNumber: u.PhoneNumber,
		BirthDate:   DateOf(u.BirthDate),
		Bio:         u.Bio,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// TokenResponse is returned by login and registration.
type TokenResponse struct {
	Message string       `json:"message,omitempty"`
	Refresh string       `json:"refresh"`
	Access  string       `json:"access"`
	User    UserResponse `json:"user"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}
