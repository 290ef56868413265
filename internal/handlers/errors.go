// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/schoolhub/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// serviceError maps typed auth service outcomes to HTTP responses. The
// service returns sentinel errors instead of messages exactly so this
// mapping never has to inspect strings.
func serviceError(c echo.Context, err error) error {
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":  "validation_failed",
			"fields": ve.Errors,
		})
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "email_already_in_use",
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid_credentials",
		})
	case errors.Is(err, auth.ErrNotVerified):
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "email_not_verified",
		})
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid_or_expired_token",
		})
	default:
		slog.Error("request_failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		})
	}
}
