package handlers

import (
	"errors"
	"net/http"

	"todocalendar/internal/auth"
	"todocalendar/internal/dto"
	"todocalendar/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration, tokens and the caller's profile.
type AuthHandler struct {
	users   *service.UserService
	tokens  *auth.Tokens
	revoked auth.Revoker
	log     *log.Logger
}

// NewAuthHandler returns a new AuthHandler.
func NewAuthHandler(users *service.UserService, tokens *auth.Tokens, revoked auth.Revoker, logger *log.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, revoked: revoked, log: logger}
}

func (h *AuthHandler) issue(c *gin.Context, status int, msg string, userID int64, user dto.UserResponse) {
	pair, err := h.tokens.Issue(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, dto.TokenResponse{Message: msg, Refresh: pair.Refresh, Access: pair.Access, User: user})
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterRequest  true  "New account"
// @Success      201   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("user registered", "user_id", u.ID)
	h.issue(c, http.StatusCreated, "User created successfully.", u.ID, dto.NewUserResponse(u))
}

// Login godoc
// @Summary      Login
// @Description  Exchanges email and password for an access/refresh token pair.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.issue(c, http.StatusOK, "", u.ID, dto.NewUserResponse(u))
}

// refreshClaims parses a refresh token and rejects blacklisted ones.
func (h *AuthHandler) refreshClaims(c *gin.Context, raw string) (auth.Claims, error) {
	claims, err := h.tokens.Parse(raw, auth.KindRefresh)
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := h.revoked.IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		return auth.Claims{}, err
	}
	if revoked {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

// Logout godoc
// @Summary      Logout
// @Description  Blacklists the given refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.RefreshRequest  true  "Refresh token"
// @Success      205   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	claims, err := h.refreshClaims(c, req.Refresh)
	if err == nil {
		if id, _ := claims.UserID(); id != auth.UserIDFromContext(c) {
			err = auth.ErrInvalidToken
		}
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid token."})
			return
		}
		respondError(c, h.log, err)
		return
	}
	if err := h.revoked.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusResetContent, dto.MessageResponse{Message: "Successfully logged out."})
}

// Refresh godoc
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RefreshRequest  true  "Refresh token"
// @Success      200   {object}  dto.AccessResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /auth/token/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	claims, err := h.refreshClaims(c, req.Refresh)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	userID, _ := claims.UserID()
	if _, err := h.users.GetByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = auth.ErrInvalidToken
		}
		respondError(c, h.log, err)
		return
	}
	access, err := h.tokens.Access(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccessResponse{Access: access})
}

// Profile godoc
// @Summary      Current user's profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// UpdateProfile godoc
// @Summary      Update the current user's profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.ProfileRequest  true  "Profile fields"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /auth/profile [put]
// @Router       /auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.ProfileRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	patch, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), auth.UserIDFromContext(c), patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// ChangePassword godoc
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.ChangePasswordRequest  true  "Old and new password"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	userID := auth.UserIDFromContext(c)
	if err := h.users.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword, req.NewPasswordConfirm); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("password changed", "user_id", userID)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password changed successfully."})
}
