package session

import (
	"time"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// Step is the position of a user in the throw flow.
type Step string

const (
	StepIdle               Step = "IDLE"
	StepAwaitingSituation  Step = "AWAITING_SITUATION"
	StepAwaitingPathChoice Step = "AWAITING_PATH_CHOICE"
)

// Session captures the ephemeral state of one user's throw in progress.
type Session struct {
	UserID            string                     `json:"userId"`
	Step              Step                       `json:"step"`
	Situation         string                     `json:"situation,omitempty"`
	Spread            throw.Spread               `json:"spread"`
	ThrowID           string                     `json:"throwId,omitempty"`
	Interpretation    string                     `json:"interpretation,omitempty"`
	PathSuggestions   map[catalog.PathKey]string `json:"pathSuggestions,omitempty"`
	ChosenPath        catalog.PathKey            `json:"chosenPath,omitempty"`
	ReflectionPrompts []string                   `json:"reflectionPrompts,omitempty"`
	StartedAt         time.Time                  `json:"startedAt"`
	UpdatedAt         time.Time                  `json:"updatedAt"`
}

// New returns a fresh session waiting for the user's situation.
func New(userID string, now time.Time) Session {
	return Session{
		UserID:    userID,
		Step:      StepAwaitingSituation,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share the map or slices.
func (s Session) Clone() Session {
	out := s
	if s.PathSuggestions != nil {
		out.PathSuggestions = make(map[catalog.PathKey]string, len(s.PathSuggestions))
		for k, v := range s.PathSuggestions {
			out.PathSuggestions[k] = v
		}
	}
	if s.ReflectionPrompts != nil {
		out.ReflectionPrompts = append([]string(nil), s.ReflectionPrompts...)
	}
	return out
}
