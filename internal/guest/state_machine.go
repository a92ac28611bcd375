// Package guest holds the guest status state machine.
package guest

import (
	"fmt"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

type edge struct {
	to     models.GuestStatus
	action string
}

// transitions directed; same-state moves are handled separately
var transitions = map[models.GuestStatus][]edge{
	models.GuestExpected: {
		{to: models.GuestOnboard, action: "check-in"},
		{to: models.GuestDeparted, action: "cancel"},
	},
	models.GuestOnboard: {
		{to: models.GuestAshore, action: "go-ashore"},
		{to: models.GuestDeparted, action: "check-out"},
	},
	models.GuestAshore: {
		{to: models.GuestOnboard, action: "return-onboard"},
	},
	models.GuestDeparted: nil,
}

var descriptions = map[models.GuestStatus]string{
	models.GuestExpected: "Expected to arrive",
	models.GuestOnboard:  "Currently onboard",
	models.GuestAshore:   "Currently ashore",
	models.GuestDeparted: "Departed",
}

// Valid reports whether s is a known status
func Valid(s models.GuestStatus) bool {
	_, ok := transitions[s]
	return ok
}

// IsValidTransition same-state moves are always allowed
func IsValidTransition(from, to models.GuestStatus) bool {
	if from == to {
		return true
	}
	for _, e := range transitions[from] {
		if e.to == to {
			return true
		}
	}
	return false
}

// AllowedTransitions destinations reachable from from, in table order
func AllowedTransitions(from models.GuestStatus) []models.GuestStatus {
	out := []models.GuestStatus{}
	for _, e := range transitions[from] {
		out = append(out, e.to)
	}
	return out
}

// TransitionAction action name for an edge, empty when not in the table
func TransitionAction(from, to models.GuestStatus) string {
	for _, e := range transitions[from] {
		if e.to == to {
			return e.action
		}
	}
	return ""
}

// Description human-readable status
func Description(s models.GuestStatus) string {
	if d, ok := descriptions[s]; ok {
		return d
	}
	return "Unknown status"
}

// ValidateTransition returns *apperr.InvalidTransitionError listing the
// allowed destinations as "status (action)"
func ValidateTransition(from, to models.GuestStatus, label string) error {
	if IsValidTransition(from, to) {
		return nil
	}
	allowed := make([]string, 0, len(transitions[from]))
	for _, e := range transitions[from] {
		allowed = append(allowed, fmt.Sprintf("%s (%s)", e.to, e.action))
	}
	return &apperr.InvalidTransitionError{
		Entity:  "guest",
		Label:   label,
		From:    string(from),
		To:      string(to),
		Allowed: allowed,
	}
}

// ValidateCheckIn check-in must precede check-out, and check-out must not be past
func ValidateCheckIn(checkIn, checkOut, now time.Time) error {
	if checkIn.After(checkOut) {
		return apperr.Invalid("check-in date must be before check-out date")
	}
	if checkOut.Before(startOfDay(now)) {
		return apperr.Invalid("cannot check in a guest whose check-out date has passed")
	}
	return nil
}

// ValidateCheckOut actual check-out must not precede check-in
func ValidateCheckOut(checkIn, actualCheckOut time.Time) error {
	if actualCheckOut.Before(checkIn) {
		return apperr.Invalid("check-out date cannot be before check-in date")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
