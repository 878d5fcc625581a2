package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fair-gaming-core/internal/model"
)

// Postgres persists signed states in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// MigratePostgres applies the session-state schema.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS signed_states (
			session_id TEXT PRIMARY KEY,
			sequence BIGINT NOT NULL,
			snapshot BYTEA NOT NULL,
			signature TEXT NOT NULL,
			signed_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate signed_states: %w", err)
	}
	return nil
}

// Load implements Store.
func (p *Postgres) Load(ctx context.Context, sessionID string) (*model.SignedState, error) {
	const query = `
		SELECT session_id, sequence, snapshot, signature, signed_at
		FROM signed_states
		WHERE session_id = $1
	`

	var state model.SignedState
	err := p.pool.QueryRow(ctx, query, sessionID).Scan(
		&state.SessionID,
		&state.Sequence,
		&state.Snapshot,
		&state.Signature,
		&state.SignedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load signed state: %w", err)
	}

	return &state, nil
}

// Save implements Store, replacing any prior state for the session.
func (p *Postgres) Save(ctx context.Context, state *model.SignedState) error {
	const query = `
		INSERT INTO signed_states (session_id, sequence, snapshot, signature, signed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			sequence = EXCLUDED.sequence,
			snapshot = EXCLUDED.snapshot,
			signature = EXCLUDED.signature,
			signed_at = EXCLUDED.signed_at
	`

	_, err := p.pool.Exec(ctx, query,
		state.SessionID, state.Sequence, state.Snapshot, state.Signature, state.SignedAt)
	if err != nil {
		return fmt.Errorf("failed to save signed state: %w", err)
	}
	return nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM signed_states WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete signed state: %w", err)
	}
	return nil
}
