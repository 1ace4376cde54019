// v0
// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks intents rejected before a record is built.
	ErrInvalidInput = errors.New("invalid input")
	// ErrChainIntegrity marks a record that failed signature or link checks at append time.
	ErrChainIntegrity = errors.New("chain integrity violation")
	// ErrNoContributors is returned when a reward has nobody to pay.
	ErrNoContributors = errors.New("no contributors with positive weight")
)

// IntegrityError describes which append stage rejected a record.
type IntegrityError struct {
	Stage    string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	if e.Expected == "" && e.Actual == "" {
		return fmt.Sprintf("%s: %s", ErrChainIntegrity.Error(), e.Stage)
	}
	return fmt.Sprintf("%s: %s expected=%s actual=%s", ErrChainIntegrity.Error(), e.Stage, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error { return ErrChainIntegrity }

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
