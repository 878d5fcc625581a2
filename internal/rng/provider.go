// Package rng implements the randomness provider that is the sole entropy
// source for every game. It prefers a verifiable beacon and transparently
// degrades to crypto/rand, tagging each result with its origin so every
// game-affecting draw stays auditable.
package rng

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Source tags where a randomness result came from.
type Source string

const (
	// SourceVerifiable marks entropy fetched from the verifiable beacon.
	SourceVerifiable Source = "verifiable"
	// SourceFallback marks entropy drawn from the local CSPRNG.
	SourceFallback Source = "fallback"
)

const (
	// seedBytes is the entropy pulled per request.
	seedBytes = 32

	// DefaultReseedInterval is how many derived draws are taken from one
	// entropy request before a fresh one is made. An 8-deck shuffle fits
	// comfortably inside a single request.
	DefaultReseedInterval = 4096

	// DefaultTrailSize bounds the in-memory audit trail.
	DefaultTrailSize = 256
)

// ErrRandomnessDegraded is returned by AssertProductionReady when the
// deployment is flagged production and the verifiable source cannot serve.
// It is never raised mid-game; live draws degrade to the tagged fallback.
var ErrRandomnessDegraded = errors.New("verifiable randomness source unavailable in production")

// ErrEmptyChoice is returned when a selection is requested from no items.
var ErrEmptyChoice = errors.New("choice requires at least one item")

// Beacon is one round of verifiable randomness.
type Beacon struct {
	Round      uint64 `json:"round"`
	Randomness []byte `json:"randomness"`
	Signature  []byte `json:"signature"`
}

// VerifiableSource produces externally auditable entropy.
type VerifiableSource interface {
	Entropy(ctx context.Context) (*Beacon, error)
}

// Result is one traceable entropy request. Every derived draw references
// the request that seeded it.
type Result struct {
	RequestID string    `json:"request_id"`
	Entropy   []byte    `json:"entropy"`
	Hex       string    `json:"hex"`
	Source    Source    `json:"source"`
	Round     uint64    `json:"round,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider is the dependency-injected randomness provider. It is safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	source     VerifiableSource
	production bool
	logger     zerolog.Logger

	reseedInterval uint64
	trailSize      int

	seed    [seedBytes]byte
	counter uint64
	current *Result
	trail   []*Result
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithProduction flags the deployment as production, arming
// AssertProductionReady.
func WithProduction(prod bool) Option {
	return func(p *Provider) { p.production = prod }
}

// WithReseedInterval overrides how many derived draws one entropy request
// may serve.
func WithReseedInterval(n uint64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.reseedInterval = n
		}
	}
}

// WithTrailSize overrides the audit trail bound.
func WithTrailSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.trailSize = n
		}
	}
}

// New creates a Provider. A nil source is allowed and simply means every
// draw uses the tagged fallback; AssertProductionReady will refuse that
// configuration in production.
func New(source VerifiableSource, opts ...Option) *Provider {
	p := &Provider{
		source:         source,
		logger:         zerolog.Nop(),
		reseedInterval: DefaultReseedInterval,
		trailSize:      DefaultTrailSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestEntropy fetches a fresh entropy result, preferring the verifiable
// source. Any source failure falls back to crypto/rand; the result is
// tagged so the degradation is visible downstream, and the call itself
// never fails on a source outage.
func (p *Provider) RequestEntropy(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestLocked(ctx)
}

func (p *Provider) requestLocked(ctx context.Context) (*Result, error) {
	res := &Result{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	if p.source != nil {
		beacon, err := p.source.Entropy(ctx)
		if err == nil && len(beacon.Randomness) > 0 {
			res.Source = SourceVerifiable
			res.Round = beacon.Round
			res.Entropy = expandEntropy(beacon.Randomness)
			p.install(res)
			return res, nil
		}
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("request_id", res.RequestID).
				Msg("verifiable randomness source failed, using fallback")
		}
	}

	buf := make([]byte, seedBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the host is broken; nothing sane to
		// fall back to beyond this.
		return nil, fmt.Errorf("fallback entropy read: %w", err)
	}
	res.Source = SourceFallback
	res.Entropy = buf
	p.install(res)
	return res, nil
}

// expandEntropy normalises beacon output to the fixed seed width.
func expandEntropy(raw []byte) []byte {
	sum := sha256.Sum256(raw)
	return sum[:]
}

func (p *Provider) install(res *Result) {
	res.Hex = hex.EncodeToString(res.Entropy)
	copy(p.seed[:], res.Entropy)
	p.counter = 0
	p.current = res
	p.trail = append(p.trail, res)
	if len(p.trail) > p.trailSize {
		p.trail = p.trail[len(p.trail)-p.trailSize:]
	}
}

// next8 derives the next 8 pseudo-random bytes from the current seed via a
// hashed counter, reseeding from the source when the interval is spent.
func (p *Provider) next8(ctx context.Context) (uint64, error) {
	if p.current == nil || p.counter >= p.reseedInterval {
		if _, err := p.requestLocked(ctx); err != nil {
			return 0, err
		}
	}
	var block [seedBytes + 8]byte
	copy(block[:seedBytes], p.seed[:])
	binary.BigEndian.PutUint64(block[seedBytes:], p.counter)
	p.counter++
	sum := sha256.Sum256(block[:])
	return binary.BigEndian.Uint64(sum[:8]), nil
}

// UniformInt draws an unbiased integer in [min, maxExclusive) using
// rejection sampling over the derived stream.
func (p *Provider) UniformInt(ctx context.Context, min, maxExclusive int) (int, error) {
	if maxExclusive <= min {
		return 0, fmt.Errorf("invalid range [%d, %d)", min, maxExclusive)
	}
	span := uint64(maxExclusive - min)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Reject draws past the largest multiple of span to avoid modulo bias.
	limit := math.MaxUint64 - math.MaxUint64%span
	for {
		v, err := p.next8(ctx)
		if err != nil {
			return 0, err
		}
		if v < limit {
			return min + int(v%span), nil
		}
	}
}

// Trace reports the request ID and source of the entropy currently feeding
// derived draws. Machines record this alongside each game-affecting draw.
func (p *Provider) Trace() (string, Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", ""
	}
	return p.current.RequestID, p.current.Source
}

// AuditTrail returns a copy of the bounded request history.
func (p *Provider) AuditTrail() []*Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Result, len(p.trail))
	copy(out, p.trail)
	return out
}

// AssertProductionReady fails loudly when the deployment is production and
// the verifiable source is absent or not serving. This is the single place
// where a fallback configuration is treated as an error.
func (p *Provider) AssertProductionReady(ctx context.Context) error {
	if !p.production {
		return nil
	}
	if p.source == nil {
		return fmt.Errorf("%w: no source configured", ErrRandomnessDegraded)
	}
	if _, err := p.source.Entropy(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRandomnessDegraded, err)
	}
	return nil
}

// Choice draws one item uniformly from items.
func Choice[T any](ctx context.Context, p *Provider, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyChoice
	}
	i, err := p.UniformInt(ctx, 0, len(items))
	if err != nil {
		return zero, err
	}
	return items[i], nil
}

// Weighted pairs a value with a relative integer weight.
type Weighted[T any] struct {
	Value  T
	Weight int
}

// WeightedChoice draws one value with probability proportional to its
// weight. Weights must be positive.
func WeightedChoice[T any](ctx context.Context, p *Provider, items []Weighted[T]) (T, error) {
	var zero T
	total := 0
	for _, it := range items {
		if it.Weight <= 0 {
			return zero, fmt.Errorf("weight must be positive, got %d", it.Weight)
		}
		total += it.Weight
	}
	if total == 0 {
		return zero, ErrEmptyChoice
	}
	roll, err := p.UniformInt(ctx, 0, total)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		roll -= it.Weight
		if roll < 0 {
			return it.Value, nil
		}
	}
	return items[len(items)-1].Value, nil
}
