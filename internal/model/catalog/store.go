package catalog

// Store exposes the symbol, path and position catalogs.
type Store interface {
	Symbols() []Symbol
	FindSymbol(id string) (Symbol, bool)
	Paths() []Path
	FindPath(key PathKey) (Path, bool)
	Positions() []Position
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	symbols   []Symbol
	paths     []Path
	positions []Position
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied catalogs.
// Symbols with a repeated ID are dropped so draws never yield duplicates.
func NewMemoryStore(symbols []Symbol, paths []Path, positions []Position) *MemoryStore {
	seen := make(map[string]struct{}, len(symbols))
	unique := make([]Symbol, 0, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s.ID]; dup || s.ID == "" {
			continue
		}
		seen[s.ID] = struct{}{}
		unique = append(unique, s)
	}

	return &MemoryStore{
		symbols:   unique,
		paths:     append([]Path(nil), paths...),
		positions: append([]Position(nil), positions...),
	}
}

// NewSeededStore returns a MemoryStore with the default catalogs.
func NewSeededStore() *MemoryStore {
	return NewMemoryStore(SeedSymbols(), SeedPaths(), SeedPositions())
}

func (s *MemoryStore) Symbols() []Symbol {
	return append([]Symbol(nil), s.symbols...)
}

func (s *MemoryStore) FindSymbol(id string) (Symbol, bool) {
	for _, item := range s.symbols {
		if item.ID == id {
			return item, true
		}
	}
	return Symbol{}, false
}

func (s *MemoryStore) Paths() []Path {
	return append([]Path(nil), s.paths...)
}

// FindPath looks up a path by key. Keys outside the enumeration report false.
func (s *MemoryStore) FindPath(key PathKey) (Path, bool) {
	for _, item := range s.paths {
		if item.Key == key {
			return item, true
		}
	}
	return Path{}, false
}

func (s *MemoryStore) Positions() []Position {
	return append([]Position(nil), s.positions...)
}
