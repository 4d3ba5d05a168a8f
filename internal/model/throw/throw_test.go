package throw

import (
	"errors"
	"testing"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
)

func TestNewSpreadRejectsDuplicates(t *testing.T) {
	_, err := NewSpread([]string{"a", "b", "c", "d", "e", "a"})
	if !errors.Is(err, ErrInvalidSpread) {
		t.Fatalf("expected ErrInvalidSpread, got %v", err)
	}
}

func TestNewSpreadRejectsWrongCount(t *testing.T) {
	if _, err := NewSpread([]string{"a", "b"}); !errors.Is(err, ErrInvalidSpread) {
		t.Fatalf("expected ErrInvalidSpread, got %v", err)
	}
}

func TestNewSpreadKeepsOrder(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	spread, err := NewSpread(ids)
	if err != nil {
		t.Fatalf("NewSpread err: %v", err)
	}
	if spread.IsZero() {
		t.Fatal("spread should not be zero")
	}
	for i, id := range spread.IDs() {
		if id != ids[i] {
			t.Fatalf("position %d: got %s want %s", i, id, ids[i])
		}
	}
}

func TestUpdateApplySkipsEmptyFields(t *testing.T) {
	rec := Record{Interpretation: "kept", ChosenPath: catalog.PathStay}
	empty := ""
	Update{Interpretation: &empty}.Apply(&rec)
	if rec.Interpretation != "kept" {
		t.Fatalf("interpretation overwritten by empty value: %q", rec.Interpretation)
	}

	path := catalog.PathChange
	Update{ChosenPath: &path, ReflectionPrompts: []string{"q1"}}.Apply(&rec)
	if rec.ChosenPath != catalog.PathChange || len(rec.ReflectionPrompts) != 1 {
		t.Fatalf("update not applied: %+v", rec)
	}
	if !(Update{}).Empty() {
		t.Fatal("zero update should be empty")
	}
}

func TestStatsFinalize(t *testing.T) {
	s := Stats{Users: 3, Throws: 7, CompletedThrows: 2}
	s.Finalize()
	if s.CompletionRate != 28.6 {
		t.Fatalf("unexpected completion rate %v", s.CompletionRate)
	}
	if s.AvgThrowsPerUser != 2.3 {
		t.Fatalf("unexpected avg %v", s.AvgThrowsPerUser)
	}
	if s.PathDistribution == nil {
		t.Fatal("distribution should be initialised")
	}
}
