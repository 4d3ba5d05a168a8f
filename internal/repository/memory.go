package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// Memory is an in-process Repository, suitable for development and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]throw.Record
	order   []string
	users   map[string]time.Time // user id -> last interaction
	now     func() time.Time
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]throw.Record),
		users:   make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) TouchUser(_ context.Context, userID string) error {
	m.mu.Lock()
	m.users[userID] = m.now()
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateThrow(_ context.Context, userID, situation string, spread throw.Spread) (string, error) {
	now := m.now()
	rec := throw.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Situation: situation,
		Spread:    spread,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	m.mu.Unlock()

	return rec.ID, nil
}

func (m *Memory) UpdateThrow(_ context.Context, id string, update throw.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return throw.ErrRecordNotFound
	}
	if update.Empty() {
		return nil
	}
	update.Apply(&rec)
	rec.UpdatedAt = m.now()
	m.records[id] = rec
	return nil
}

func (m *Memory) GetThrow(_ context.Context, id string) (throw.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return throw.Record{}, throw.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int) ([]throw.Record, error) {
	if limit <= 0 {
		return []throw.Record{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]throw.Record, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[m.order[i]]
		if rec.UserID == userID {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (m *Memory) Stats(_ context.Context, now time.Time) (throw.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[string]struct{})
	active := make(map[string]struct{})
	stats := throw.Stats{PathDistribution: make(map[catalog.PathKey]int)}
	since := now.Add(-ActiveWindow)

	for id, last := range m.users {
		users[id] = struct{}{}
		if !last.Before(since) {
			active[id] = struct{}{}
		}
	}
	for _, rec := range m.records {
		stats.Throws++
		users[rec.UserID] = struct{}{}
		if !rec.CreatedAt.Before(since) {
			active[rec.UserID] = struct{}{}
		}
		if rec.Completed() {
			stats.CompletedThrows++
			stats.PathDistribution[rec.ChosenPath]++
		}
	}
	stats.Users = len(users)
	stats.ActiveUsers7d = len(active)
	stats.Finalize()
	return stats, nil
}

func (m *Memory) Close() error { return nil }

func copyRecord(rec throw.Record) throw.Record {
	if rec.ReflectionPrompts != nil {
		rec.ReflectionPrompts = append([]string(nil), rec.ReflectionPrompts...)
	}
	return rec
}
