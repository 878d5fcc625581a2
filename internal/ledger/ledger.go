// Package ledger defines the settlement collaborator boundary. The
// authority records exactly one entry per settled session, never before
// the outcome exists; debiting and crediting balances belongs to the
// external wallet service consuming these entries.
package ledger

import (
	"context"
	"sync"
	"time"

	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
)

// Entry is one settled round.
type Entry struct {
	SessionID string         `json:"session_id"`
	PlayerID  string         `json:"player_id"`
	GameType  model.GameType `json:"game_type"`
	Wager     int64          `json:"wager"`
	Winner    payout.Winner  `json:"winner"`
	Payout    int64          `json:"payout"`
	SettledAt time.Time      `json:"settled_at"`
}

// Recorder receives settlement entries.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// Memory collects entries in process, for tests and the simulator.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record implements Recorder.
func (m *Memory) Record(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
