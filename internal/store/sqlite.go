package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unsaid-app/attune/internal/attachment"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attachment_profiles (
	user_id    TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLite is an embedded ProfileStore for single-node and on-device
// deployments. Profiles are stored as one JSON document per user.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, userID string) (*attachment.Profile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM attachment_profiles WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attachment.ErrProfileNotFound
	}
	if err != nil {
		if unavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	var p attachment.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (s *SQLite) Put(ctx context.Context, userID string, p *attachment.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attachment_profiles (user_id, profile, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, raw, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if unavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM attachment_profiles WHERE user_id = ?`, userID,
	); err != nil {
		if unavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *SQLite) Close() {
	_ = s.db.Close()
}
