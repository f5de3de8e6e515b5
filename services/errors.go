package services

import (
	"errors"
	"fmt"
)

// Business errors returned by the settlement engine. Controllers map these to
// HTTP statuses; nothing is persisted when a request fails with one of the
// pre-write kinds (validation, limit, not found).
var (
	ErrLimitExceeded   = errors.New("amount exceeds pending balance")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyRefunded = errors.New("order already refunded")
)

// ValidationError rejects bad input before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// GatewayError wraps a payment gateway failure or timeout. The attempt is
// already recorded as a failed ledger entry by the time the caller sees this.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
