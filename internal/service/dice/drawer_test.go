package dice

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
)

func TestDrawReturnsDistinctCatalogSymbols(t *testing.T) {
	symbols := catalog.SeedSymbols()
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[s.ID] = true
	}

	d := NewDrawer(rand.New(rand.NewPCG(1, 2)))
	for round := 0; round < 200; round++ {
		drawn, err := d.Draw(symbols, 6)
		if err != nil {
			t.Fatalf("Draw err: %v", err)
		}
		if len(drawn) != 6 {
			t.Fatalf("expected 6 symbols, got %d", len(drawn))
		}
		seen := make(map[string]bool, 6)
		for _, s := range drawn {
			if !known[s.ID] {
				t.Fatalf("symbol %q not in catalog", s.ID)
			}
			if seen[s.ID] {
				t.Fatalf("duplicate symbol %q in round %d", s.ID, round)
			}
			seen[s.ID] = true
		}
	}
}

func TestDrawFailsOnSmallCatalog(t *testing.T) {
	d := NewDrawer(nil)
	_, err := d.Draw(catalog.SeedSymbols()[:5], 6)
	if !errors.Is(err, ErrCatalogTooSmall) {
		t.Fatalf("expected ErrCatalogTooSmall, got %v", err)
	}
}

func TestDrawExactCatalogSize(t *testing.T) {
	d := NewDrawer(nil)
	drawn, err := d.Draw(catalog.SeedSymbols()[:6], 6)
	if err != nil {
		t.Fatalf("Draw err: %v", err)
	}
	if len(drawn) != 6 {
		t.Fatalf("expected 6 symbols, got %d", len(drawn))
	}
}

func TestDrawRejectsNonPositiveCount(t *testing.T) {
	d := NewDrawer(nil)
	if _, err := d.Draw(catalog.SeedSymbols(), 0); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}
