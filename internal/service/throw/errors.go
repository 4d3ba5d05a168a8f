package throw

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSessionNotFound is reported when the user has no active throw.
	ErrSessionNotFound        = fmt.Errorf("%w: session not found", ErrInvalidTransition)
	ErrValidation             = errors.New("validation error")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrGenerationUnavailable  = errors.New("generation unavailable")
	ErrBusy                   = errors.New("another event for this user is in progress")
)

// Outcome is the stable code reported to clients for an event result.
type Outcome string

const (
	OutcomeOK                     Outcome = "ok"
	OutcomeInvalidTransition      Outcome = "invalid_transition"
	OutcomeValidation             Outcome = "validation_error"
	OutcomePersistenceUnavailable Outcome = "persistence_unavailable"
	OutcomeGenerationUnavailable  Outcome = "generation_unavailable"
	OutcomeBusy                   Outcome = "busy"
	OutcomeInternal               Outcome = "internal_error"
)

// OutcomeOf classifies err into an Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrBusy):
		return OutcomeBusy
	case errors.Is(err, ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrPersistenceUnavailable):
		return OutcomePersistenceUnavailable
	case errors.Is(err, ErrGenerationUnavailable):
		return OutcomeGenerationUnavailable
	default:
		return OutcomeInternal
	}
}
