package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the paper trading ledger and matcher.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderFilled         = errors.New("cannot cancel filled order")
	ErrOrderCancelled      = errors.New("order already cancelled")
	ErrPositionNotFound    = errors.New("position not found")
	ErrNoPrice             = errors.New("no price available")
)

// ValidationError marks a bad request caught at the orchestration boundary
// (non-positive capital, empty data, inverted date range). It is surfaced to
// the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
