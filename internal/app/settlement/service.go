package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"agent-arena/internal/events"
	"agent-arena/internal/ledger"
	"agent-arena/internal/match"
	"agent-arena/internal/rating"
	"agent-arena/internal/store"
	"agent-arena/internal/strategy"
	"agent-arena/internal/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var DefaultFeeRate = decimal.RequireFromString("0.05")

type Config struct {
	FeeRate    decimal.Decimal
	Rating     rating.Calculator
	Engine     *match.Engine
	Strategies *strategy.Registry
	Publisher  events.Publisher
	Metrics    *telemetry.Metrics
}

type Service struct {
	store      *store.Store
	ledger     *ledger.Ledger
	feeRate    decimal.Decimal
	rating     rating.Calculator
	engine     *match.Engine
	strategies *strategy.Registry
	publisher  events.Publisher
	metrics    *telemetry.Metrics
	now        func() time.Time
}

func NewService(st *store.Store, led *ledger.Ledger, cfg Config) *Service {
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		cfg.FeeRate = DefaultFeeRate
	}
	if cfg.Rating.K == 0 {
		cfg.Rating = rating.New(rating.DefaultK, rating.DefaultFloor)
	}
	if cfg.Engine == nil {
		cfg.Engine = match.NewEngine(cfg.Rating, match.DefaultBestOf)
	}
	if cfg.Strategies == nil {
		cfg.Strategies = strategy.NewRegistry(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.LogPublisher{}
	}
	return &Service{
		store:      st,
		ledger:     led,
		feeRate:    cfg.FeeRate,
		rating:     cfg.Rating,
		engine:     cfg.Engine,
		strategies: cfg.Strategies,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// ComputePayout splits the pot for stake. The fee is floored to whole
// credits; on a draw each side pays half of it, rounded down.
func ComputePayout(stake int64, feeRate decimal.Decimal) Payout {
	pot := stake * 2
	fee := decimal.NewFromInt(pot).Mul(feeRate).Floor().IntPart()
	return Payout{
		Pot:          pot,
		HouseFee:     fee,
		WinnerPayout: pot - fee,
		DrawShare:    fee / 2,
	}
}

// ResolveMatch plays and settles an in-progress match. A match that is
// already completed, or that another caller completes first, yields
// ErrAlreadySettled and no further effects.
func (s *Service) ResolveMatch(ctx context.Context, matchID string) (*Result, error) {
	if matchID == "" {
		return nil, ErrInvalidRequest
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.Status == store.MatchCompleted {
		return nil, ErrAlreadySettled
	}

	a1, err := s.agent(ctx, m.Player1ID, m.Player1SessionID, m.Player1Strategy)
	if err != nil {
		return nil, err
	}
	a2, err := s.agent(ctx, m.Player2ID, m.Player2SessionID, m.Player2Strategy)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.PlayMatch(m.ID, a1, a2, m.BestOf)
	if err != nil {
		return nil, fmt.Errorf("play match %s: %w", m.ID, err)
	}
	return s.settle(ctx, m, res)
}

// ResolveMatchResult settles a match with an outcome computed elsewhere.
func (s *Service) ResolveMatchResult(ctx context.Context, matchID string, res *match.Result) (*Result, error) {
	if matchID == "" || res == nil {
		return nil, ErrInvalidRequest
	}
	if res.MatchID != matchID {
		return nil, ErrResultMismatch
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.Status == store.MatchCompleted {
		return nil, ErrAlreadySettled
	}
	if !res.IsDraw && !participant(m, res.WinnerID) {
		return nil, ErrResultMismatch
	}
	return s.settle(ctx, m, res)
}

// ResolveStale is ResolveMatch for background sweeps, where losing the race
// to another settler is success.
func (s *Service) ResolveStale(ctx context.Context, matchID string) error {
	_, err := s.ResolveMatch(ctx, matchID)
	if errors.Is(err, ErrAlreadySettled) {
		return nil
	}
	return err
}

// Settled returns the stored outcome of a completed match.
func (s *Service) Settled(ctx context.Context, matchID string) (*Result, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.Status != store.MatchCompleted {
		return nil, ErrMatchNotFound
	}
	out := resultFromMatch(m, s.feeRate)
	out.Status = StatusAlreadySettled
	return out, nil
}

func (s *Service) agent(ctx context.Context, agentID, sessionID, tag string) (match.Agent, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return match.Agent{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if tag == "" {
		tag = sess.Strategy
	}
	strat, ok := s.strategies.Lookup(tag)
	if !ok {
		log.Debug().Str("agent_id", agentID).Str("strategy", tag).Msg("unknown_strategy_defaulted")
	}
	return match.Agent{
		ID:          agentID,
		SessionID:   sessionID,
		Strategy:    strat,
		Rating:      sess.Rating,
		Balance:     sess.Balance,
		GamesPlayed: sess.GamesPlayed,
	}, nil
}

func (s *Service) settle(ctx context.Context, m *store.Match, res *match.Result) (*Result, error) {
	payout := ComputePayout(m.StakeAmount, s.feeRate)
	rounds, err := json.Marshal(res.Rounds)
	if err != nil {
		return nil, err
	}
	settledAt := s.now()

	var out *Result
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		done := *m
		done.Rounds = string(rounds)
		done.P1Score, done.P2Score = res.P1Score, res.P2Score
		done.DurationMs = res.DurationMs
		done.ServerSeed, done.ServerSeedHash = res.ServerSeed, res.ServerSeedHash
		done.ClientSeed1, done.ClientSeed2 = res.ClientSeed1, res.ClientSeed2
		done.WinnerID = nil
		done.HouseFee = payout.HouseFee
		if res.IsDraw {
			done.HouseFee = payout.DrawShare * 2
		} else {
			w := res.WinnerID
			done.WinnerID = &w
		}

		sessions, err := lockSessions(ctx, q, m.Player1SessionID, m.Player2SessionID)
		if err != nil {
			return err
		}
		s1, s2 := sessions[m.Player1SessionID], sessions[m.Player2SessionID]
		r1 := s.rating.Apply(s1.Rating, res.RatingDelta1)
		r2 := s.rating.Apply(s2.Rating, res.RatingDelta2)
		done.RatingDelta1, done.RatingDelta2 = r1-s1.Rating, r2-s2.Rating

		n, err := q.CompleteMatch(ctx, done, settledAt)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadySettled
		}

		o1 := store.SessionOutcome{SessionID: s1.ID, Rating: r1}
		o2 := store.SessionOutcome{SessionID: s2.ID, Rating: r2}
		switch {
		case res.IsDraw:
			o1.Draw, o2.Draw = true, true
			o1.BalanceDelta, o2.BalanceDelta = -payout.DrawShare, -payout.DrawShare
		case res.WinnerID == m.Player1ID:
			o1.Win, o2.Loss = true, true
			o1.BalanceDelta, o2.BalanceDelta = payout.WinnerPayout-m.StakeAmount, -m.StakeAmount
		default:
			o2.Win, o1.Loss = true, true
			o2.BalanceDelta, o1.BalanceDelta = payout.WinnerPayout-m.StakeAmount, -m.StakeAmount
		}
		if err := q.ApplySessionOutcome(ctx, o1, settledAt); err != nil {
			return fmt.Errorf("apply outcome %s: %w", o1.SessionID, err)
		}
		if err := q.ApplySessionOutcome(ctx, o2, settledAt); err != nil {
			return fmt.Errorf("apply outcome %s: %w", o2.SessionID, err)
		}
		if _, err := s.ledger.ReleaseMatch(ctx, q, m.ID); err != nil {
			return fmt.Errorf("release escrow: %w", err)
		}
		if _, err := q.DeleteQueueEntriesForMatch(ctx, m.ID); err != nil {
			return fmt.Errorf("delete queue entries: %w", err)
		}

		done.Status = store.MatchCompleted
		done.SettledAt = &settledAt
		out = resultFromMatch(&done, s.feeRate)
		out.Rounds = res.Rounds
		out.Status = StatusSettled
		return nil
	})
	if errors.Is(err, ErrAlreadySettled) {
		s.metrics.SettleConflict(ctx)
		log.Debug().Str("match_id", m.ID).Msg("match_already_settled")
		return nil, ErrAlreadySettled
	}
	if err != nil {
		return nil, err
	}

	s.metrics.MatchSettled(ctx, out.IsDraw, out.HouseFee)
	log.Info().
		Str("match_id", out.MatchID).
		Str("winner_id", out.WinnerID).
		Bool("is_draw", out.IsDraw).
		Int64("stake", out.Stake).
		Int64("house_fee", out.HouseFee).
		Int("rounds", len(out.Rounds)).
		Msg("match_settled")
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeMatchSettled,
		MatchID:   out.MatchID,
		GameType:  m.GameType,
		Player1ID: out.Player1ID,
		Player2ID: out.Player2ID,
		Stake:     out.Stake,
		WinnerID:  out.WinnerID,
		IsDraw:    out.IsDraw,
		HouseFee:  out.HouseFee,
		At:        settledAt,
	}); err != nil {
		log.Warn().Err(err).Str("match_id", out.MatchID).Msg("event_publish_failed")
	}
	return out, nil
}

func lockSessions(ctx context.Context, q *store.Queries, ids ...string) (map[string]*store.Session, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*store.Session, len(ids))
	for _, id := range sorted {
		sess, err := q.GetSessionForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lock session %s: %w", id, err)
		}
		out[id] = sess
	}
	return out, nil
}

func participant(m *store.Match, agentID string) bool {
	return agentID == m.Player1ID || agentID == m.Player2ID
}

func resultFromMatch(m *store.Match, feeRate decimal.Decimal) *Result {
	payout := ComputePayout(m.StakeAmount, feeRate)
	out := &Result{
		MatchID:        m.ID,
		Player1ID:      m.Player1ID,
		Player2ID:      m.Player2ID,
		Stake:          m.StakeAmount,
		Pot:            payout.Pot,
		HouseFee:       m.HouseFee,
		P1Score:        m.P1Score,
		P2Score:        m.P2Score,
		RatingDelta1:   m.RatingDelta1,
		RatingDelta2:   m.RatingDelta2,
		ServerSeedHash: m.ServerSeedHash,
		DurationMs:     m.DurationMs,
		SettledAt:      m.SettledAt,
		Rounds:         []match.RoundResult{},
	}
	if m.Rounds != "" {
		_ = json.Unmarshal([]byte(m.Rounds), &out.Rounds)
	}
	if m.WinnerID == nil {
		out.IsDraw = true
		return out
	}
	out.WinnerID = *m.WinnerID
	out.LoserID = m.Player2ID
	if out.WinnerID == m.Player2ID {
		out.LoserID = m.Player1ID
	}
	out.WinnerPayout = m.StakeAmount*2 - m.HouseFee
	return out
}
