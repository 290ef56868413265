// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/services/password"
)

const (
	nameMinLength = 2
	nameMaxLength = 50
)

// FieldError describes a single invalid sign-up field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries all field errors found in one validation pass, so
// callers can surface everything at once instead of failing field by field.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("%s: %s", e.Errors[0].Field, e.Errors[0].Message)
}

// newPasswordValidationError maps password policy violations onto field errors.
func newPasswordValidationError(result password.ValidationResult) *ValidationError {
	ve := &ValidationError{}
	for _, err := range result.Errors {
		ve.Errors = append(ve.Errors, FieldError{Field: "password", Code: err.Code, Message: err.Message})
	}
	return ve
}

// validateSignUp checks all sign-up fields and returns either nil or a
// ValidationError listing every violation. params.Email must already be
// normalized.
func (s *Service) validateSignUp(params SignUpParams) error {
	var errs []FieldError

	if _, err := mail.ParseAddress(params.Email); err != nil {
		errs = append(errs, FieldError{
			Field:   "email",
			Code:    "invalid_email",
			Message: "Invalid email address.",
		})
	}

	errs = append(errs, validateName("first_name", params.FirstName)...)
	errs = append(errs, validateName("last_name", params.LastName)...)

	switch params.Role {
	case models.RoleStudent, models.RoleTeacher:
	default:
		// Admin accounts are not self-service.
		errs = append(errs, FieldError{
			Field:   "role",
			Code:    "invalid_role",
			Message: "Role must be student or teacher.",
		})
	}

	if result := s.validator.Validate(params.Password); !result.Valid {
		errs = append(errs, newPasswordValidationError(result).Errors...)
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateName(field, value string) []FieldError {
	length := utf8.RuneCountInString(strings.TrimSpace(value))
	if length < nameMinLength {
		return []FieldError{{
			Field:   field,
			Code:    "min_length",
			Message: fmt.Sprintf("Name must be at least %d characters long.", nameMinLength),
		}}
	}
	if length > nameMaxLength {
		return []FieldError{{
			Field:   field,
			Code:    "max_length",
			Message: fmt.Sprintf("Name must be at most %d characters long.", nameMaxLength),
		}}
	}
	return nil
}
