package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// clock lets tests move the repository's notion of "now".
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type factory func(t *testing.T, c *clock) Repository

func newMemoryRepo(_ *testing.T, c *clock) Repository {
	m := NewMemory()
	m.now = c.now
	return m
}

func newSQLiteRepo(t *testing.T, c *clock) Repository {
	s, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	s.now = c.now
	t.Cleanup(func() { s.Close() })
	return s
}

var drivers = map[string]factory{
	"memory": newMemoryRepo,
	"sqlite": newSQLiteRepo,
}

func testSpread(t *testing.T) throw.Spread {
	t.Helper()
	spread, err := throw.NewSpread([]string{"sun", "moon", "key", "door", "bridge", "seed"})
	require.NoError(t, err)
	return spread
}

func strPtr(s string) *string { return &s }

func pathPtr(p catalog.PathKey) *catalog.PathKey { return &p }

func TestCreateAndGetThrow(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
			repo := newRepo(t, c)

			id, err := repo.CreateThrow(ctx, "u1", "Should I change jobs?", testSpread(t))
			require.NoError(t, err)
			require.NotEmpty(t, id)

			rec, err := repo.GetThrow(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, rec.ID)
			assert.Equal(t, "u1", rec.UserID)
			assert.Equal(t, "Should I change jobs?", rec.Situation)
			assert.Equal(t, testSpread(t), rec.Spread)
			assert.Empty(t, rec.Interpretation)
			assert.False(t, rec.Completed())
			assert.True(t, c.t.Equal(rec.CreatedAt))
		})
	}
}

func TestUpdateThrowIsPartial(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, &clock{t: time.Now().UTC()})

			id, err := repo.CreateThrow(ctx, "u1", "s", testSpread(t))
			require.NoError(t, err)

			require.NoError(t, repo.UpdateThrow(ctx, id, throw.Update{Interpretation: strPtr("reading")}))
			require.NoError(t, repo.UpdateThrow(ctx, id, throw.Update{
				Interpretation:    strPtr(""),
				ChosenPath:        pathPtr(catalog.PathChange),
				ReflectionPrompts: []string{"one", "two"},
			}))

			rec, err := repo.GetThrow(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "reading", rec.Interpretation)
			assert.Equal(t, catalog.PathChange, rec.ChosenPath)
			assert.Equal(t, []string{"one", "two"}, rec.ReflectionPrompts)

			// An empty update leaves the record untouched.
			require.NoError(t, repo.UpdateThrow(ctx, id, throw.Update{}))
			again, err := repo.GetThrow(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, rec, again)
		})
	}
}

func TestUnknownThrow(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, &clock{t: time.Now().UTC()})

			_, err := repo.GetThrow(ctx, "999")
			assert.ErrorIs(t, err, throw.ErrRecordNotFound)

			err = repo.UpdateThrow(ctx, "999", throw.Update{Interpretation: strPtr("x")})
			assert.ErrorIs(t, err, throw.ErrRecordNotFound)

			err = repo.UpdateThrow(ctx, "not-an-id", throw.Update{})
			assert.ErrorIs(t, err, throw.ErrRecordNotFound)
		})
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
			repo := newRepo(t, c)

			var ids []string
			for i := 0; i < 3; i++ {
				id, err := repo.CreateThrow(ctx, "u1", "s", testSpread(t))
				require.NoError(t, err)
				ids = append(ids, id)
				c.t = c.t.Add(time.Minute)
			}
			_, err := repo.CreateThrow(ctx, "u2", "other", testSpread(t))
			require.NoError(t, err)

			list, err := repo.ListByUser(ctx, "u1", 2)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, ids[2], list[0].ID)
			assert.Equal(t, ids[1], list[1].ID)

			empty, err := repo.ListByUser(ctx, "u1", 0)
			require.NoError(t, err)
			assert.Empty(t, empty)

			none, err := repo.ListByUser(ctx, "nobody", 5)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStats(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
			c := &clock{t: now.Add(-30 * 24 * time.Hour)}
			repo := newRepo(t, c)

			// u-old threw only a month ago.
			_, err := repo.CreateThrow(ctx, "u-old", "s", testSpread(t))
			require.NoError(t, err)

			c.t = now.Add(-time.Hour)
			a, err := repo.CreateThrow(ctx, "u1", "s", testSpread(t))
			require.NoError(t, err)
			b, err := repo.CreateThrow(ctx, "u1", "s", testSpread(t))
			require.NoError(t, err)
			_, err = repo.CreateThrow(ctx, "u2", "s", testSpread(t))
			require.NoError(t, err)

			require.NoError(t, repo.UpdateThrow(ctx, a, throw.Update{ChosenPath: pathPtr(catalog.PathChange)}))
			require.NoError(t, repo.UpdateThrow(ctx, b, throw.Update{ChosenPath: pathPtr(catalog.PathStay)}))

			stats, err := repo.Stats(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 3, stats.Users)
			assert.Equal(t, 2, stats.ActiveUsers7d)
			assert.Equal(t, 4, stats.Throws)
			assert.Equal(t, 2, stats.CompletedThrows)
			assert.InDelta(t, 50.0, stats.CompletionRate, 1e-9)
			assert.InDelta(t, 1.3, stats.AvgThrowsPerUser, 1e-9)
			assert.Equal(t, map[catalog.PathKey]int{catalog.PathChange: 1, catalog.PathStay: 1}, stats.PathDistribution)
		})
	}
}

func TestTouchedUsersCountWithoutThrows(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
			c := &clock{t: now.Add(-30 * 24 * time.Hour)}
			repo := newRepo(t, c)

			require.NoError(t, repo.TouchUser(ctx, "lurker"))
			require.NoError(t, repo.TouchUser(ctx, "returning"))

			c.t = now.Add(-time.Hour)
			require.NoError(t, repo.TouchUser(ctx, "returning"))
			require.NoError(t, repo.TouchUser(ctx, "thrower"))
			_, err := repo.CreateThrow(ctx, "thrower", "s", testSpread(t))
			require.NoError(t, err)

			stats, err := repo.Stats(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 3, stats.Users)
			assert.Equal(t, 2, stats.ActiveUsers7d)
			assert.Equal(t, 1, stats.Throws)
			assert.InDelta(t, 0.3, stats.AvgThrowsPerUser, 1e-9)
		})
	}
}

func TestStatsEmpty(t *testing.T) {
	for name, newRepo := range drivers {
		t.Run(name, func(t *testing.T) {
			stats, err := newRepo(t, &clock{t: time.Now().UTC()}).Stats(context.Background(), time.Now())
			require.NoError(t, err)
			assert.Zero(t, stats.Throws)
			assert.Zero(t, stats.CompletionRate)
			assert.Zero(t, stats.AvgThrowsPerUser)
			assert.NotNil(t, stats.PathDistribution)
		})
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	repo, err := Open(context.Background(), storeConfig("memory", ""), nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)

	repo, err = Open(context.Background(), storeConfig("sqlite", ":memory:"), nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(context.Background(), storeConfig("mongo", ""), nil)
	assert.Error(t, err)
}

func storeConfig(driver, dsn string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DSN: dsn}
}
