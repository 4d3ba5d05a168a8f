package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// Repository persists throws and the users who started them.
type Repository interface {
	// TouchUser records the user's first contact, or refreshes their last interaction.
	TouchUser(ctx context.Context, userID string) error
	CreateThrow(ctx context.Context, userID, situation string, spread throw.Spread) (string, error)
	// UpdateThrow applies the non-empty fields of update; unknown ids yield throw.ErrRecordNotFound.
	UpdateThrow(ctx context.Context, id string, update throw.Update) error
	GetThrow(ctx context.Context, id string) (throw.Record, error)
	// ListByUser returns the user's latest throws, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]throw.Record, error)
	Stats(ctx context.Context, now time.Time) (throw.Stats, error)
	Close() error
}

// ActiveWindow is the look-back used for the active users counter. A user is active when they
// interacted or threw within the window.
const ActiveWindow = 7 * 24 * time.Hour

// Open returns the Repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverSQLite:
		repo, err := NewSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := NewPostgres(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
