package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unsaid-app/attune/internal/attachment"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS attachment_profiles (
	user_id    TEXT PRIMARY KEY,
	profile    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Postgres is the shared-deployment ProfileStore, one JSONB document per
// user keyed by user id.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Get(ctx context.Context, userID string) (*attachment.Profile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM attachment_profiles WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *Postgres) Put(ctx context.Context, userID string, p *attachment.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attachment_profiles (user_id, profile, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET profile = $2, updated_at = now()`,
		userID, raw,
	)
	if err != nil {
		if unavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM attachment_profiles WHERE user_id = $1`, userID,
	); err != nil {
		if unavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}
