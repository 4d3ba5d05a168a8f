package throw

import (
	"errors"
	"fmt"
	"time"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
)

// SpreadSize is the number of dice in one throw.
const SpreadSize = 6

var (
	ErrRecordNotFound = errors.New("throw record not found")
	ErrInvalidSpread  = errors.New("invalid spread")
)

// Spread holds the drawn symbol IDs in position order (root, outer, inner, shadow, gift, step).
type Spread [SpreadSize]string

// NewSpread validates that ids are exactly SpreadSize distinct non-empty symbol IDs.
func NewSpread(ids []string) (Spread, error) {
	var spread Spread
	if len(ids) != SpreadSize {
		return spread, fmt.Errorf("%w: want %d symbols, got %d", ErrInvalidSpread, SpreadSize, len(ids))
	}

	seen := make(map[string]struct{}, SpreadSize)
	for i, id := range ids {
		if id == "" {
			return Spread{}, fmt.Errorf("%w: empty symbol at position %d", ErrInvalidSpread, i)
		}
		if _, dup := seen[id]; dup {
			return Spread{}, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidSpread, id)
		}
		seen[id] = struct{}{}
		spread[i] = id
	}
	return spread, nil
}

// IsZero reports whether nothing has been drawn yet.
func (s Spread) IsZero() bool {
	return s == Spread{}
}

// IDs returns the symbols as a slice in position order.
func (s Spread) IDs() []string {
	return append([]string(nil), s[:]...)
}

// Placement binds a drawn symbol to its position in the spread.
type Placement struct {
	Position catalog.Position `json:"position"`
	Symbol   catalog.Symbol   `json:"symbol"`
}

// Record is the durable trace of one throw.
type Record struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Situation         string          `json:"situation"`
	Spread            Spread          `json:"spread"`
	Interpretation    string          `json:"interpretation,omitempty"`
	ChosenPath        catalog.PathKey `json:"chosenPath,omitempty"`
	ReflectionPrompts []string        `json:"reflectionPrompts,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Completed reports whether a path was chosen for the throw.
func (r Record) Completed() bool {
	return r.ChosenPath != ""
}

// Update is a partial change to a Record. Nil or empty fields are left untouched.
type Update struct {
	Interpretation    *string
	ChosenPath        *catalog.PathKey
	ReflectionPrompts []string
}

// Empty reports whether the update carries nothing to apply.
func (u Update) Empty() bool {
	return (u.Interpretation == nil || *u.Interpretation == "") &&
		(u.ChosenPath == nil || *u.ChosenPath == "") &&
		len(u.ReflectionPrompts) == 0
}

// Apply copies the non-empty fields of u onto r.
func (u Update) Apply(r *Record) {
	if u.Interpretation != nil && *u.Interpretation != "" {
		r.Interpretation = *u.Interpretation
	}
	if u.ChosenPath != nil && *u.ChosenPath != "" {
		r.ChosenPath = *u.ChosenPath
	}
	if len(u.ReflectionPrompts) > 0 {
		r.ReflectionPrompts = append([]string(nil), u.ReflectionPrompts...)
	}
}

// Stats summarizes stored throws for the admin dashboard and exports.
type Stats struct {
	Users            int                     `json:"users"`
	ActiveUsers7d    int                     `json:"activeUsers7d"`
	Throws           int                     `json:"throws"`
	CompletedThrows  int                     `json:"completedThrows"`
	CompletionRate   float64                 `json:"completionRate"`
	AvgThrowsPerUser float64                 `json:"avgThrowsPerUser"`
	PathDistribution map[catalog.PathKey]int `json:"pathDistribution"`
}

// Finalize derives the rate fields from the counters, rounded to one decimal.
func (s *Stats) Finalize() {
	if s.PathDistribution == nil {
		s.PathDistribution = make(map[catalog.PathKey]int)
	}
	s.CompletionRate = 0
	s.AvgThrowsPerUser = 0
	if s.Throws > 0 {
		s.CompletionRate = round1(float64(s.CompletedThrows) * 100 / float64(s.Throws))
	}
	if s.Users > 0 {
		s.AvgThrowsPerUser = round1(float64(s.Throws) / float64(s.Users))
	}
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
