package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrSessionExpired = errors.New("session expired or invalid")

	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Business-rule rejections for the subscription and delivery flows.
var (
	ErrCutoffPassed    = errors.New("cutoff passed: same-day delivery changes are closed")
	ErrAlreadyPaused   = errors.New("subscription is already paused")
	ErrNotPaused       = errors.New("subscription is not paused")
	ErrNotActive       = errors.New("subscription is not active")
	ErrAlreadyEnded    = errors.New("subscription is already cancelled or expired")
	ErrCouponInactive  = errors.New("coupon is not active")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
