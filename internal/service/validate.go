package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"task-manager/internal/apperr"
	"task-manager/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// userFields holds the subset of User covered by tag-expressible rules.
type userFields struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Age   int    `validate:"gte=0"`
}

// validateUser checks the persisted fields of a user against the account
// constraints. The password rule runs separately on the plaintext, before
// hashing.
func validateUser(u *domain.User) error {
	err := validate.Struct(userFields{
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
	})
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return apperr.Validation("invalid user")
	}

	switch first := errs[0]; first.Field() {
	case "Name":
		return apperr.Validation("name is required")
	case "Email":
		if first.Tag() == "required" {
			return apperr.Validation("email is required")
		}
		return apperr.Validation("email is invalid")
	case "Age":
		return apperr.Validation("age must be a positive number")
	default:
		return apperr.Validation("invalid user")
	}
}

// validatePassword enforces the plaintext password policy.
func validatePassword(plaintext string) error {
	if len(plaintext) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	if strings.Contains(strings.ToLower(plaintext), "password") {
		return apperr.Validation(`password cannot contain "password"`)
	}
	return nil
}

// normalizeEmail lowercases and trims the address the same way on every path
// so the uniqueness check is case and whitespace insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
