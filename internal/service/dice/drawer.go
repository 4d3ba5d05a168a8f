package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
)

var (
	ErrCatalogTooSmall = errors.New("symbol catalog too small")
	ErrInvalidCount    = errors.New("draw count must be positive")
)

// Drawer samples symbols without replacement.
type Drawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawer returns a Drawer using rng, or the process-wide source when rng is nil.
func NewDrawer(rng *rand.Rand) *Drawer {
	return &Drawer{rng: rng}
}

// Draw returns count distinct symbols from symbols in random order.
func (d *Drawer) Draw(symbols []catalog.Symbol, count int) ([]catalog.Symbol, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if len(symbols) < count {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrCatalogTooSmall, count, len(symbols))
	}

	perm := d.perm(len(symbols))
	drawn := make([]catalog.Symbol, count)
	for i := 0; i < count; i++ {
		drawn[i] = symbols[perm[i]]
	}
	return drawn, nil
}

func (d *Drawer) perm(n int) []int {
	if d.rng == nil {
		return rand.Perm(n)
	}
	// rand.Rand is not safe for concurrent use.
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Perm(n)
}
