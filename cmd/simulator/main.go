// Package main runs one wagered round of every registered game through
// the session state authority, exercising the full pipeline from beacon
// entropy to signed states to the settlement ledger.
package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fair-gaming-core/internal/authority"
	"fair-gaming-core/internal/config"
	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/game/blackjack"
	"fair-gaming-core/internal/game/coinflip"
	"fair-gaming-core/internal/game/duel"
	"fair-gaming-core/internal/ledger"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/pkg/db"
	"fair-gaming-core/internal/rng"
	"fair-gaming-core/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("environment", cfg.Environment).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Entropy provider: verifiable beacon first, tagged CSPRNG fallback
	// behind it.
	var source rng.VerifiableSource
	if cfg.Beacon.URL != "" {
		source = rng.NewBeaconClient(cfg.Beacon.URL, cfg.Beacon.Timeout)
	}
	provider := rng.New(source,
		rng.WithLogger(log.Logger),
		rng.WithProduction(cfg.Production()),
	)
	if cfg.Production() {
		if err := provider.AssertProductionReady(ctx); err != nil {
			log.Fatal().Err(err).Msg("Verifiable randomness unavailable in production")
		}
	}

	// Register game machines
	registry := game.NewRegistry()
	for _, m := range []game.Machine{
		blackjack.NewWithDecks(provider, cfg.Games.Blackjack.ShoeDecks),
		coinflip.New(provider),
		duel.New(provider, duel.Config{
			MoveDeadline:    cfg.Games.Duel.MoveDeadline,
			SessionDeadline: cfg.Games.Duel.SessionDeadline,
		}),
	} {
		if err := registry.Register(m); err != nil {
			log.Fatal().Err(err).Str("game", string(m.GameType())).Msg("Failed to register game")
		}
	}
	log.Info().Int("game_count", registry.Count()).Msg("Games registered")

	// Collaborators: durable when configured, in-memory otherwise.
	sessionStore, recorder := buildCollaborators(ctx, cfg)

	auth, err := authority.New([]byte(cfg.Signing.Key), registry,
		authority.WithStore(sessionStore),
		authority.WithRecorder(recorder),
		authority.WithLogger(log.Logger),
		authority.WithWagerLimits(cfg.Wager.Min, cfg.Wager.Max),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create authority")
	}

	playCoinFlip(ctx, auth)
	playDuel(ctx, auth)
	playBlackjack(ctx, auth)

	for _, res := range provider.AuditTrail() {
		log.Info().
			Str("request_id", res.RequestID).
			Str("source", string(res.Source)).
			Msg("Entropy request audited")
	}
}

// buildCollaborators wires the session store and settlement ledger from
// configuration, preferring Redis for sessions and PostgreSQL for the
// ledger when enabled.
func buildCollaborators(ctx context.Context, cfg *config.Config) (store.Store, ledger.Recorder) {
	var sessionStore store.Store = store.NewMemory()
	var recorder ledger.Recorder = ledger.NewMemory()

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		sessionStore = store.NewRedis(client, cfg.Redis.SessionTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis session store enabled")
	}

	if cfg.Database.Enabled {
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := store.MigratePostgres(ctx, pool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate session state schema")
		}
		if err := ledger.MigratePostgres(ctx, pool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate settlement schema")
		}
		recorder = ledger.NewPostgres(pool.Pool)
		if !cfg.Redis.Enabled {
			sessionStore = store.NewPostgres(pool.Pool)
		}
		log.Info().Msg("PostgreSQL collaborators enabled")
	}

	return sessionStore, recorder
}

func playCoinFlip(ctx context.Context, auth *authority.Authority) {
	created, err := auth.Create(ctx, "sim-player", model.GameCoinFlip, 100)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create coin flip session")
	}

	res, err := auth.Apply(ctx, created.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceHeads,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Coin flip failed")
	}
	logOutcome("coinflip", res)
}

func playDuel(ctx context.Context, auth *authority.Authority) {
	created, err := auth.Create(ctx, "sim-player", model.GameDuel, 100)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create duel session")
	}

	res, err := auth.Apply(ctx, created.State, game.Action{
		Type:    game.ActionMove,
		Actor:   game.ActorPlayer,
		Gesture: model.GestureRock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Duel failed")
	}
	logOutcome("duel", res)
}

// playBlackjack stands on every decision point, which always reaches a
// terminal state regardless of what the shoe deals.
func playBlackjack(ctx context.Context, auth *authority.Authority) {
	res, err := auth.Create(ctx, "sim-player", model.GameBlackjack, 100)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create card game session")
	}

	for res.Outcome == nil {
		res, err = auth.Apply(ctx, res.State, game.Action{Type: game.ActionStand})
		if err != nil {
			log.Fatal().Err(err).Msg("Card game failed")
		}
	}
	logOutcome("blackjack", res)
}

func logOutcome(gameName string, res *authority.Result) {
	log.Info().
		Str("game", gameName).
		Str("session_id", res.State.SessionID).
		Uint64("sequence", res.State.Sequence).
		Str("winner", string(res.Outcome.Winner)).
		Int64("payout", res.Outcome.PayoutAmount).
		Msg("Round settled")
}
