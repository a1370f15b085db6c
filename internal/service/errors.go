package service

import (
	"fmt" // Formatting

	"paywallet/internal/domain" // Error categories
)

// InputError describes the first field that failed validation.
// It matches domain.ErrInvalidInput with errors.Is.
type InputError struct {
	Field string // JSON field name, empty when the failure is not field-specific
	Rule  string // Failed rule
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", domain.ErrInvalidInput, e.Rule)
	}
	return fmt.Sprintf("%s: %s failed %s", domain.ErrInvalidInput, e.Field, e.Rule)
}

// Unwrap exposes the category
func (e *InputError) Unwrap() error { return domain.ErrInvalidInput }
