// Package lifecycle holds the ticket state machine. It is a pure lookup and
// applies no effects; callers persist the result through a conditional update.
package lifecycle

import (
	"fmt"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
)

type Transition string

const (
	Activate Transition = "activate"
	Scan     Transition = "scan"
	Cancel   Transition = "cancel"
	Refund   Transition = "refund"
	Expire   Transition = "expire"
)

var table = map[models.State]map[Transition]models.State{
	// payment confirmed, or payment failed / hold expired
	models.StatePending: {
		Activate: models.StateActive,
		Cancel:   models.StateCancelled,
	},
	models.StateActive: {
		Scan:   models.StateScanned,
		Cancel: models.StateCancelled,
		Refund: models.StateRefunded,
		Expire: models.StateExpired,
	},
}

// Next returns the state reached by applying t to from.
func Next(from models.State, t Transition) (models.State, error) {
	to, ok := table[from][t]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s ticket", status.ErrInvalidTransition, t, from)
	}
	return to, nil
}

// Allowed reports whether t is legal from the given state.
func Allowed(from models.State, t Transition) bool {
	_, ok := table[from][t]
	return ok
}

func ParseTransition(s string) (Transition, error) {
	for _, t := range Transitions() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown transition %q", status.ErrInvalidInput, s)
}

func Transitions() []Transition {
	return []Transition{Activate, Scan, Cancel, Refund, Expire}
}

func States() []models.State {
	return []models.State{
		models.StatePending,
		models.StateActive,
		models.StateScanned,
		models.StateCancelled,
		models.StateRefunded,
		models.StateExpired,
	}
}
