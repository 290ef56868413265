// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/services/auth"
	"codeberg.org/oliverandrich/schoolhub/internal/services/session"
	"github.com/labstack/echo/v4"
)

// sessionKey is the echo context key RequireAuth stores the session under.
const sessionKey = "session"

// AuthHandlers contains handlers for authentication and account lifecycle.
type AuthHandlers struct {
	svc      *auth.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{svc: svc, sessions: sessions}
}

// SignUpRequest is the request body for account creation.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// SignUp creates a new unverified account and triggers the verification email.
func (h *AuthHandlers) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleStudent
	}

	user, err := h.svc.SignUp(c.Request().Context(), auth.SignUpParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"ok": true,
		"id": user.ID,
	})
}

// VerifyEmail consumes a verification token from the query string.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	tokenValue := c.QueryParam("token")
	if tokenValue == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_or_expired_token"})
	}

	if err := h.svc.VerifyEmail(c.Request().Context(), tokenValue); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// EmailRequest is the request body for flows keyed by email only.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResendVerification issues a fresh verification email. Responds accepted
// regardless of whether the address belongs to an account.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.svc.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]any{"ok": true})
}

// ForgotPassword starts the password reset flow. Responds accepted
// regardless of whether the address belongs to an account.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]any{"ok": true})
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword consumes a reset token and stores the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.svc.CompletePasswordReset(c.Request().Context(), req.Token, req.Password); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the credentials and issues a session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	identity, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	if err := h.sessions.Issue(c, identity); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, identity)
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Me returns the identity behind the current session.
func (h *AuthHandlers) Me(c echo.Context) error {
	sess := currentSession(c)
	return c.JSON(http.StatusOK, auth.Identity{
		ID:    sess.UserID,
		Email: sess.Email,
		Role:  sess.Role,
	})
}

// ChangePasswordRequest is the request body for changing a password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the password of the logged-in user.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	sess := currentSession(c)
	if err := h.svc.ChangePassword(c.Request().Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// RequireAuth rejects requests without a valid session cookie and stores
// the session on the echo context for downstream handlers.
func (h *AuthHandlers) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := h.sessions.Get(c)
		if sess == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication_required"})
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

// currentSession returns the session stored by RequireAuth.
func currentSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionKey).(*session.Session)
	return sess
}
