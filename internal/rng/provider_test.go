package rng

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// stubSource is a controllable verifiable source for tests.
type stubSource struct {
	beacon *Beacon
	err    error
	calls  int
}

func (s *stubSource) Entropy(ctx context.Context) (*Beacon, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.beacon, nil
}

func testBeacon(round uint64) *Beacon {
	return &Beacon{
		Round:      round,
		Randomness: []byte("beacon-randomness-for-round"),
		Signature:  []byte("sig"),
	}
}

func TestRequestEntropyPrefersVerifiableSource(t *testing.T) {
	src := &stubSource{beacon: testBeacon(42)}
	p := New(src)

	res, err := p.RequestEntropy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceVerifiable, res.Source)
	assert.Equal(t, uint64(42), res.Round)
	assert.NotEmpty(t, res.RequestID)
	assert.Len(t, res.Entropy, 32)
	assert.NotEmpty(t, res.Hex)
}

func TestRequestEntropyFallsBackOnSourceFailure(t *testing.T) {
	src := &stubSource{err: errors.New("beacon unreachable")}
	p := New(src)

	res, err := p.RequestEntropy(context.Background())
	require.NoError(t, err, "a source outage must not fail the request")

	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Entropy, 32)
}

func TestRequestEntropyWithoutSourceUsesFallback(t *testing.T) {
	p := New(nil)

	res, err := p.RequestEntropy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestTraceReportsCurrentRequest(t *testing.T) {
	p := New(nil)

	id, source := p.Trace()
	assert.Empty(t, id, "no draw yet, nothing to trace")
	assert.Empty(t, source)

	_, err := p.UniformInt(context.Background(), 0, 10)
	require.NoError(t, err)

	id, source = p.Trace()
	assert.NotEmpty(t, id)
	assert.Equal(t, SourceFallback, source)
}

func TestUniformIntRejectsInvalidRange(t *testing.T) {
	p := New(nil)

	_, err := p.UniformInt(context.Background(), 5, 5)
	assert.Error(t, err)

	_, err = p.UniformInt(context.Background(), 10, 3)
	assert.Error(t, err)
}

func TestReseedAfterInterval(t *testing.T) {
	src := &stubSource{beacon: testBeacon(1)}
	p := New(src, WithReseedInterval(4))

	ctx := context.Background()
	for range 10 {
		_, err := p.UniformInt(ctx, 0, 6)
		require.NoError(t, err)
	}

	// 10 draws at 4 per seed need at least 3 requests. Rejection
	// sampling may burn extra stream positions, never fewer.
	assert.GreaterOrEqual(t, src.calls, 3)
}

func TestAuditTrailIsBounded(t *testing.T) {
	p := New(nil, WithTrailSize(3))
	ctx := context.Background()

	for range 5 {
		_, err := p.RequestEntropy(ctx)
		require.NoError(t, err)
	}

	assert.Len(t, p.AuditTrail(), 3)
}

func TestAssertProductionReady(t *testing.T) {
	ctx := context.Background()

	t.Run("development ignores missing source", func(t *testing.T) {
		p := New(nil)
		assert.NoError(t, p.AssertProductionReady(ctx))
	})

	t.Run("production requires a source", func(t *testing.T) {
		p := New(nil, WithProduction(true))
		assert.ErrorIs(t, p.AssertProductionReady(ctx), ErrRandomnessDegraded)
	})

	t.Run("production requires the source to serve", func(t *testing.T) {
		p := New(&stubSource{err: errors.New("down")}, WithProduction(true))
		assert.ErrorIs(t, p.AssertProductionReady(ctx), ErrRandomnessDegraded)
	})

	t.Run("production passes with a healthy source", func(t *testing.T) {
		p := New(&stubSource{beacon: testBeacon(7)}, WithProduction(true))
		assert.NoError(t, p.AssertProductionReady(ctx))
	})
}

func TestChoice(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	_, err := Choice(ctx, p, []string(nil))
	assert.ErrorIs(t, err, ErrEmptyChoice)

	got, err := Choice(ctx, p, []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestWeightedChoiceRejectsNonPositiveWeights(t *testing.T) {
	p := New(nil)

	_, err := WeightedChoice(context.Background(), p, []Weighted[string]{
		{Value: "a", Weight: 3},
		{Value: "b", Weight: 0},
	})
	assert.Error(t, err)
}

// Every draw must land inside the requested range, whatever the range and
// however the provider is seeded.
func TestUniformIntBoundsProperty(t *testing.T) {
	p := New(&stubSource{beacon: testBeacon(99)})
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		min := rapid.IntRange(-1000, 1000).Draw(t, "min")
		span := rapid.IntRange(1, 500).Draw(t, "span")

		got, err := p.UniformInt(ctx, min, min+span)
		if err != nil {
			t.Fatalf("uniform draw failed: %v", err)
		}
		if got < min || got >= min+span {
			t.Fatalf("draw %d outside [%d, %d)", got, min, min+span)
		}
	})
}

// A weighted selection must always return one of the supplied values.
func TestWeightedChoiceMembershipProperty(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "items")
		items := make([]Weighted[int], n)
		for i := range items {
			items[i] = Weighted[int]{
				Value:  i,
				Weight: rapid.IntRange(1, 100).Draw(t, "weight"),
			}
		}

		got, err := WeightedChoice(ctx, p, items)
		if err != nil {
			t.Fatalf("weighted draw failed: %v", err)
		}
		if got < 0 || got >= n {
			t.Fatalf("drew %d, not a member of the item set", got)
		}
	})
}
