package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists settlement entries in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed recorder.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// MigratePostgres applies the settlement schema.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			player_id TEXT NOT NULL,
			game_type VARCHAR(50) NOT NULL,
			wager BIGINT NOT NULL,
			winner VARCHAR(20) NOT NULL,
			payout BIGINT NOT NULL,
			settled_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate settlements: %w", err)
	}
	return nil
}

// Record implements Recorder. The unique session constraint makes a
// double settlement a hard error instead of a silent duplicate.
func (p *Postgres) Record(ctx context.Context, entry *Entry) error {
	const query = `
		INSERT INTO settlements (session_id, player_id, game_type, wager, winner, payout, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.pool.Exec(ctx, query,
		entry.SessionID, entry.PlayerID, entry.GameType,
		entry.Wager, entry.Winner, entry.Payout, entry.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}
	return nil
}
