package rng

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBeaconTimeout bounds a single beacon round trip.
const DefaultBeaconTimeout = 5 * time.Second

// BeaconClient fetches rounds from a drand-style randomness beacon over
// HTTP. The beacon exposes hex-encoded randomness plus a signature that
// third parties can audit against the beacon's public key.
type BeaconClient struct {
	baseURL string
	client  *http.Client
}

// NewBeaconClient creates a client for the beacon at baseURL. A zero
// timeout uses DefaultBeaconTimeout.
func NewBeaconClient(baseURL string, timeout time.Duration) *BeaconClient {
	if timeout <= 0 {
		timeout = DefaultBeaconTimeout
	}
	return &BeaconClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// beaconRound mirrors the beacon's JSON wire format.
type beaconRound struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature"`
}

// Entropy fetches the latest beacon round.
func (c *BeaconClient) Entropy(ctx context.Context) (*Beacon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/public/latest", nil)
	if err != nil {
		return nil, fmt.Errorf("build beacon request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch beacon round: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("beacon returned status %d", resp.StatusCode)
	}

	var round beaconRound
	if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
		return nil, fmt.Errorf("decode beacon round: %w", err)
	}

	randomness, err := hex.DecodeString(round.Randomness)
	if err != nil {
		return nil, fmt.Errorf("decode beacon randomness: %w", err)
	}
	if len(randomness) == 0 {
		return nil, fmt.Errorf("beacon round %d carried no randomness", round.Round)
	}
	signature, err := hex.DecodeString(round.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode beacon signature: %w", err)
	}

	return &Beacon{
		Round:      round.Round,
		Randomness: randomness,
		Signature:  signature,
	}, nil
}
