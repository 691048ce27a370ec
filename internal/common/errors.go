// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors abort processing of the offending source.
	ErrUnknownSourceFormat = errors.New("unknown source file format")
	ErrMalformedTransfer   = errors.New("malformed transfer envelope")
	ErrMissingFieldMapping = errors.New("missing field mapping")
	ErrMissingConfig       = errors.New("missing configuration")
	ErrInvalidConfig       = errors.New("invalid configuration")

	// Data errors.
	ErrNoData          = errors.New("no budgets or transactions ingested")
	ErrDuplicateBudget = errors.New("duplicate budget definition")
	ErrReportNotFound  = errors.New("report not found")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
