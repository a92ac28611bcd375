// Package apperr holds the error taxonomy shared by the duty, roster, guest
// and request packages.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound referenced crew/guest/request/shift does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict the record changed underneath a conditional write
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput malformed caller input (bad date, unknown role, ...)
	ErrInvalidInput = errors.New("invalid input")
)

// Invalid wraps ErrInvalidInput with a message
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NotFound wraps ErrNotFound with the entity kind and id
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// InvalidTransitionError a state machine rejected an edge
type InvalidTransitionError struct {
	Entity  string
	Label   string
	From    string
	To      string
	Allowed []string
	// Err is set when the rejection came from a lost compare-and-swap
	Err error
}

func (e *InvalidTransitionError) Error() string {
	subject := e.Entity
	if e.Label != "" {
		subject = fmt.Sprintf("%s %s", e.Entity, e.Label)
	}
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("invalid status transition for %s: cannot change from %q to %q. allowed transitions: %s",
		subject, e.From, e.To, allowed)
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

// AvailabilityConflictError an assignment failed availability validation
type AvailabilityConflictError struct {
	Reason    string
	Conflicts []ConflictRef
}

// ConflictRef identifies an existing assignment that blocks a new one
type ConflictRef struct {
	Date    string `json:"date"`
	ShiftID string `json:"shiftId"`
	CrewID  string `json:"crewId"`
	Type    string `json:"type"`
}

func (e *AvailabilityConflictError) Error() string {
	return "cannot assign crew member: " + e.Reason
}

// TransientError persistence or notifier failure worth retrying
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError; nil stays nil
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is transient
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}

// Retry runs fn up to attempts times, doubling the delay from base, while the
// error is transient. Non-transient errors return immediately.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
