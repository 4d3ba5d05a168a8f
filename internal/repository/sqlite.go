package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dice_throws (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	situation TEXT NOT NULL,
	root_symbol TEXT NOT NULL,
	outer_symbol TEXT NOT NULL,
	inner_symbol TEXT NOT NULL,
	shadow_symbol TEXT NOT NULL,
	gift_symbol TEXT NOT NULL,
	step_symbol TEXT NOT NULL,
	interpretation TEXT,
	chosen_path TEXT,
	reflection_prompts TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dice_throws_user ON dice_throws(user_id);
CREATE INDEX IF NOT EXISTS idx_dice_throws_created ON dice_throws(created_at);
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	last_interaction INTEGER NOT NULL
);
`

const throwColumns = `id, user_id, situation, root_symbol, outer_symbol, inner_symbol,
	shadow_symbol, gift_symbol, step_symbol, interpretation, chosen_path,
	reflection_prompts, created_at, updated_at`

// SQLite stores throws in a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and if needed creates) the database at path. Use ":memory:" for tests.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLite) TouchUser(ctx context.Context, userID string) error {
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (user_id, created_at, last_interaction) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_interaction = excluded.last_interaction`,
		userID, now, now)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

func (s *SQLite) CreateThrow(ctx context.Context, userID, situation string, spread throw.Spread) (string, error) {
	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `INSERT INTO dice_throws
		(user_id, situation, root_symbol, outer_symbol, inner_symbol, shadow_symbol, gift_symbol, step_symbol, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, situation, spread[0], spread[1], spread[2], spread[3], spread[4], spread[5], now, now)
	if err != nil {
		return "", fmt.Errorf("insert throw: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read throw id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *SQLite) UpdateThrow(ctx context.Context, id string, update throw.Update) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return throw.ErrRecordNotFound
	}
	if update.Empty() {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM dice_throws WHERE id = ?`, rowID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return throw.ErrRecordNotFound
		}
		return err
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.now().UnixMilli()}
	if update.Interpretation != nil && *update.Interpretation != "" {
		sets = append(sets, "interpretation = ?")
		args = append(args, *update.Interpretation)
	}
	if update.ChosenPath != nil && *update.ChosenPath != "" {
		sets = append(sets, "chosen_path = ?")
		args = append(args, string(*update.ChosenPath))
	}
	if len(update.ReflectionPrompts) > 0 {
		encoded, err := json.Marshal(update.ReflectionPrompts)
		if err != nil {
			return fmt.Errorf("encode reflection prompts: %w", err)
		}
		sets = append(sets, "reflection_prompts = ?")
		args = append(args, string(encoded))
	}

	args = append(args, rowID)
	res, err := s.db.ExecContext(ctx, `UPDATE dice_throws SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update throw: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update throw: %w", err)
	}
	if n == 0 {
		return throw.ErrRecordNotFound
	}
	return nil
}

func (s *SQLite) GetThrow(ctx context.Context, id string) (throw.Record, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return throw.Record{}, throw.ErrRecordNotFound
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+throwColumns+` FROM dice_throws WHERE id = ?`, rowID)
	rec, err := scanThrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return throw.Record{}, throw.ErrRecordNotFound
	}
	return rec, err
}

func (s *SQLite) ListByUser(ctx context.Context, userID string, limit int) ([]throw.Record, error) {
	if limit <= 0 {
		return []throw.Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+throwColumns+` FROM dice_throws
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list throws: %w", err)
	}
	defer rows.Close()

	out := make([]throw.Record, 0, limit)
	for rows.Next() {
		rec, err := scanThrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Stats(ctx context.Context, now time.Time) (throw.Stats, error) {
	stats := throw.Stats{PathDistribution: make(map[catalog.PathKey]int)}
	since := now.Add(-ActiveWindow).UnixMilli()

	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(CASE WHEN chosen_path IS NOT NULL AND chosen_path <> '' THEN 1 END)
		FROM dice_throws`).Scan(&stats.Throws, &stats.CompletedThrows)
	if err != nil {
		return throw.Stats{}, fmt.Errorf("count throws: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM (SELECT user_id FROM users UNION SELECT user_id FROM dice_throws)),
		(SELECT COUNT(*) FROM (
			SELECT user_id FROM users WHERE last_interaction >= ?
			UNION SELECT user_id FROM dice_throws WHERE created_at >= ?))`,
		since, since).Scan(&stats.Users, &stats.ActiveUsers7d)
	if err != nil {
		return throw.Stats{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT chosen_path, COUNT(*) FROM dice_throws
		WHERE chosen_path IS NOT NULL AND chosen_path <> '' GROUP BY chosen_path`)
	if err != nil {
		return throw.Stats{}, fmt.Errorf("path distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return throw.Stats{}, err
		}
		stats.PathDistribution[catalog.PathKey(key)] = count
	}
	if err := rows.Err(); err != nil {
		return throw.Stats{}, err
	}

	stats.Finalize()
	return stats, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThrow(row rowScanner) (throw.Record, error) {
	var (
		id                              int64
		rec                             throw.Record
		interpretation, chosen, prompts sql.NullString
		createdAt, updatedAt            int64
	)
	err := row.Scan(&id, &rec.UserID, &rec.Situation,
		&rec.Spread[0], &rec.Spread[1], &rec.Spread[2], &rec.Spread[3], &rec.Spread[4], &rec.Spread[5],
		&interpretation, &chosen, &prompts, &createdAt, &updatedAt)
	if err != nil {
		return throw.Record{}, err
	}

	rec.ID = strconv.FormatInt(id, 10)
	rec.Interpretation = interpretation.String
	rec.ChosenPath = catalog.PathKey(chosen.String)
	if prompts.Valid && prompts.String != "" {
		if err := json.Unmarshal([]byte(prompts.String), &rec.ReflectionPrompts); err != nil {
			return throw.Record{}, fmt.Errorf("decode reflection prompts: %w", err)
		}
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}
