package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

type throwModel struct {
	ID                uint    `gorm:"primaryKey"`
	UserID            string  `gorm:"index;not null"`
	Situation         string  `gorm:"type:text;not null"`
	RootSymbol        string  `gorm:"not null"`
	OuterSymbol       string  `gorm:"not null"`
	InnerSymbol       string  `gorm:"not null"`
	ShadowSymbol      string  `gorm:"not null"`
	GiftSymbol        string  `gorm:"not null"`
	StepSymbol        string  `gorm:"not null"`
	Interpretation    *string `gorm:"type:text"`
	ChosenPath        *string
	ReflectionPrompts *string   `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
}

func (throwModel) TableName() string {
	return "dice_throws"
}

type userModel struct {
	UserID          string `gorm:"primaryKey"`
	CreatedAt       time.Time
	LastInteraction time.Time `gorm:"index"`
}

func (userModel) TableName() string {
	return "users"
}

func (m throwModel) toRecord() (throw.Record, error) {
	rec := throw.Record{
		ID:        strconv.FormatUint(uint64(m.ID), 10),
		UserID:    m.UserID,
		Situation: m.Situation,
		Spread: throw.Spread{
			m.RootSymbol, m.OuterSymbol, m.InnerSymbol, m.ShadowSymbol, m.GiftSymbol, m.StepSymbol,
		},
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.Interpretation != nil {
		rec.Interpretation = *m.Interpretation
	}
	if m.ChosenPath != nil {
		rec.ChosenPath = catalog.PathKey(*m.ChosenPath)
	}
	if m.ReflectionPrompts != nil && *m.ReflectionPrompts != "" {
		if err := json.Unmarshal([]byte(*m.ReflectionPrompts), &rec.ReflectionPrompts); err != nil {
			return throw.Record{}, fmt.Errorf("decode reflection prompts: %w", err)
		}
	}
	return rec, nil
}

// Postgres stores throws in PostgreSQL through GORM.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres connects using dsn and migrates the throws table.
func NewPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&throwModel{}, &userModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate throws: %w", err)
	}

	logger.Info("postgres repository ready")
	return &Postgres{db: db}, nil
}

func (p *Postgres) TouchUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	user := userModel{UserID: userID, CreatedAt: now, LastInteraction: now}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"last_interaction": now}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

func (p *Postgres) CreateThrow(ctx context.Context, userID, situation string, spread throw.Spread) (string, error) {
	m := throwModel{
		UserID:       userID,
		Situation:    situation,
		RootSymbol:   spread[0],
		OuterSymbol:  spread[1],
		InnerSymbol:  spread[2],
		ShadowSymbol: spread[3],
		GiftSymbol:   spread[4],
		StepSymbol:   spread[5],
	}
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", fmt.Errorf("insert throw: %w", err)
	}
	return strconv.FormatUint(uint64(m.ID), 10), nil
}

func (p *Postgres) UpdateThrow(ctx context.Context, id string, update throw.Update) error {
	rowID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return throw.ErrRecordNotFound
	}
	if update.Empty() {
		_, err := p.GetThrow(ctx, id)
		return err
	}

	values := map[string]any{}
	if update.Interpretation != nil && *update.Interpretation != "" {
		values["interpretation"] = *update.Interpretation
	}
	if update.ChosenPath != nil && *update.ChosenPath != "" {
		values["chosen_path"] = string(*update.ChosenPath)
	}
	if len(update.ReflectionPrompts) > 0 {
		encoded, err := json.Marshal(update.ReflectionPrompts)
		if err != nil {
			return fmt.Errorf("encode reflection prompts: %w", err)
		}
		values["reflection_prompts"] = string(encoded)
	}

	res := p.db.WithContext(ctx).Model(&throwModel{}).Where("id = ?", rowID).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update throw: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return throw.ErrRecordNotFound
	}
	return nil
}

func (p *Postgres) GetThrow(ctx context.Context, id string) (throw.Record, error) {
	rowID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return throw.Record{}, throw.ErrRecordNotFound
	}

	var m throwModel
	err = p.db.WithContext(ctx).First(&m, rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return throw.Record{}, throw.ErrRecordNotFound
	}
	if err != nil {
		return throw.Record{}, err
	}
	return m.toRecord()
}

func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]throw.Record, error) {
	if limit <= 0 {
		return []throw.Record{}, nil
	}

	var models []throwModel
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list throws: %w", err)
	}

	out := make([]throw.Record, 0, len(models))
	for _, m := range models {
		rec, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Postgres) Stats(ctx context.Context, now time.Time) (throw.Stats, error) {
	db := p.db.WithContext(ctx)
	var throws, users, active, completed int64

	if err := db.Model(&throwModel{}).Count(&throws).Error; err != nil {
		return throw.Stats{}, err
	}
	err := db.Raw(`SELECT COUNT(*) FROM (SELECT user_id FROM users UNION SELECT user_id FROM dice_throws) u`).
		Scan(&users).Error
	if err != nil {
		return throw.Stats{}, err
	}
	since := now.Add(-ActiveWindow)
	err = db.Raw(`SELECT COUNT(*) FROM (
		SELECT user_id FROM users WHERE last_interaction >= ?
		UNION SELECT user_id FROM dice_throws WHERE created_at >= ?) a`, since, since).
		Scan(&active).Error
	if err != nil {
		return throw.Stats{}, err
	}
	if err := db.Model(&throwModel{}).Where("chosen_path IS NOT NULL AND chosen_path <> ''").Count(&completed).Error; err != nil {
		return throw.Stats{}, err
	}

	var rows []struct {
		ChosenPath string
		Count      int
	}
	err = db.Model(&throwModel{}).
		Select("chosen_path, COUNT(*) AS count").
		Where("chosen_path IS NOT NULL AND chosen_path <> ''").
		Group("chosen_path").
		Scan(&rows).Error
	if err != nil {
		return throw.Stats{}, err
	}

	stats := throw.Stats{
		Users:            int(users),
		ActiveUsers7d:    int(active),
		Throws:           int(throws),
		CompletedThrows:  int(completed),
		PathDistribution: make(map[catalog.PathKey]int, len(rows)),
	}
	for _, row := range rows {
		stats.PathDistribution[catalog.PathKey(row.ChosenPath)] = row.Count
	}
	stats.Finalize()
	return stats, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
