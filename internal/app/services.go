// Package app wires the arena's application services together and holds the
// flows that span more than one of them.
package app

import (
	"context"
	"errors"

	"agent-arena/internal/app/matchmaking"
	"agent-arena/internal/app/public"
	"agent-arena/internal/app/session"
	"agent-arena/internal/app/settlement"
	"agent-arena/internal/config"
	"agent-arena/internal/events"
	"agent-arena/internal/ledger"
	"agent-arena/internal/match"
	"agent-arena/internal/rating"
	"agent-arena/internal/store"
	"agent-arena/internal/strategy"
	"agent-arena/internal/telemetry"

	"github.com/rs/zerolog/log"
)

type Services struct {
	Store       *store.Store
	Ledger      *ledger.Ledger
	Matchmaking *matchmaking.Service
	Settlement  *settlement.Service
	Public      *public.Service
	Sessions    *session.Service
	Feed        *events.Buffer
	Janitor     matchmaking.JanitorConfig
	AutoResolve bool
}

// Options carries the optional collaborators. Zero values fall back to
// logging-only events and no metrics.
type Options struct {
	Publisher events.Publisher
	Metrics   *telemetry.Metrics
	// FeedSize bounds the in-memory event feed served to spectators.
	FeedSize int
}

func NewServices(st *store.Store, cfg config.ArenaConfig, opts Options) *Services {
	led := ledger.New(st)
	strategies := strategy.NewRegistry(nil)
	calc := rating.New(cfg.RatingKFactor, cfg.RatingFloor)
	engine := match.NewEngine(calc, cfg.BestOf)
	feed := events.NewBuffer(opts.FeedSize)
	if opts.Publisher == nil {
		opts.Publisher = events.LogPublisher{}
	}
	pub := events.Multi{opts.Publisher, feed}
	return &Services{
		Store:  st,
		Ledger: led,
		Matchmaking: matchmaking.NewService(st, led, matchmaking.Config{
			QueueTTL:   cfg.QueueTTL,
			BestOf:     cfg.BestOf,
			Strategies: strategies,
			Publisher:  pub,
			Metrics:    opts.Metrics,
		}),
		Settlement: settlement.NewService(st, led, settlement.Config{
			FeeRate:    cfg.HouseFeeRate,
			Rating:     calc,
			Engine:     engine,
			Strategies: strategies,
			Publisher:  pub,
			Metrics:    opts.Metrics,
		}),
		Public:   public.NewService(st),
		Sessions: session.NewService(st, led, strategies),
		Feed:     feed,
		Janitor: matchmaking.JanitorConfig{
			Interval:    cfg.JanitorInterval,
			StaleAfter:  cfg.StaleMatchAfter,
			OrphanGrace: cfg.OrphanGrace,
		},
		AutoResolve: cfg.AutoResolve,
	}
}

// JoinOutcome is the answer to a queue join: the entry, and when an opponent
// was already waiting, the pairing and possibly its settlement.
type JoinOutcome struct {
	Status  string                  `json:"status"`
	QueueID string                  `json:"queue_id"`
	Stake   int64                   `json:"stake_amount"`
	Match   *matchmaking.FindResult `json:"match,omitempty"`
	Result  *settlement.Result      `json:"result,omitempty"`
}

const (
	JoinQueued   = "queued"
	JoinMatched  = "matched"
	JoinResolved = "resolved"
)

// JoinAndMatch queues the agent and makes one immediate pairing attempt.
// With AutoResolve set, a fresh pairing is played and settled in the same
// call.
func (s *Services) JoinAndMatch(ctx context.Context, req matchmaking.JoinRequest) (*JoinOutcome, error) {
	entry, err := s.Matchmaking.Join(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &JoinOutcome{Status: JoinQueued, QueueID: entry.ID, Stake: entry.StakeAmount}
	found, err := s.Matchmaking.FindMatch(ctx, entry.AgentID)
	if err != nil {
		// The entry stays queued; a later find_match can still pair it.
		log.Warn().Err(err).Str("agent_id", entry.AgentID).Msg("join_find_match_failed")
		return out, nil
	}
	if !found.Matched {
		return out, nil
	}
	out.Status = JoinMatched
	out.Match = found
	if !s.AutoResolve {
		return out, nil
	}
	res, err := s.Resolve(ctx, found.MatchID)
	if err != nil {
		// The janitor settles matches left in progress.
		log.Warn().Err(err).Str("match_id", found.MatchID).Msg("join_auto_resolve_failed")
		return out, nil
	}
	out.Status = JoinResolved
	out.Result = res
	return out, nil
}

// Resolve settles the match, reporting a match somebody else already settled
// through its stored outcome rather than an error.
func (s *Services) Resolve(ctx context.Context, matchID string) (*settlement.Result, error) {
	res, err := s.Settlement.ResolveMatch(ctx, matchID)
	if errors.Is(err, settlement.ErrAlreadySettled) {
		return s.Settlement.Settled(ctx, matchID)
	}
	return res, err
}

// StartJanitor runs the periodic queue, escrow and stale-match sweep until
// ctx is done.
func (s *Services) StartJanitor(ctx context.Context) {
	s.Matchmaking.StartJanitor(ctx, s.Janitor, s.Settlement)
}
