package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"agent-arena/internal/events"
	"agent-arena/internal/ledger"
	"agent-arena/internal/match"
	"agent-arena/internal/store"
	"agent-arena/internal/strategy"
	"agent-arena/internal/telemetry"

	"github.com/rs/zerolog/log"
)

const (
	DefaultQueueTTL = 5 * time.Minute
	// candidatePage is how many compatible entries are read per query while
	// looking for a pairing.
	candidatePage = 10
	sweepBatch     = 100
)

type Config struct {
	QueueTTL   time.Duration
	BestOf     int
	Strategies *strategy.Registry
	Publisher  events.Publisher
	Metrics    *telemetry.Metrics
}

type Service struct {
	store      *store.Store
	ledger     *ledger.Ledger
	queueTTL   time.Duration
	bestOf     int
	strategies *strategy.Registry
	publisher  events.Publisher
	metrics    *telemetry.Metrics
	now        func() time.Time
}

func NewService(st *store.Store, led *ledger.Ledger, cfg Config) *Service {
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = DefaultQueueTTL
	}
	if cfg.BestOf < 1 {
		cfg.BestOf = match.DefaultBestOf
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
		queueTTL:   cfg.QueueTTL,
		bestOf:     cfg.BestOf,
		strategies: cfg.Strategies,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// Join admits the agent to the queue with its stake held in escrow. If
// anything fails after the hold is taken, the hold is refunded before the
// error is returned.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*store.QueueEntry, error) {
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.GameType = strings.TrimSpace(req.GameType)
	if req.AgentID == "" || req.SessionID == "" || req.GameType == "" || req.StakeAmount <= 0 {
		return nil, ErrInvalidRequest
	}

	if _, err := s.store.GetSearchingEntry(ctx, req.AgentID); err == nil {
		return nil, ErrAlreadyQueued
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionInactive
	}
	if err != nil {
		return nil, err
	}
	if sess.AgentID != req.AgentID {
		return nil, ErrSessionMismatch
	}
	if sess.Status != store.SessionActive {
		return nil, ErrSessionInactive
	}
	if sess.Balance < req.StakeAmount {
		return nil, ErrInsufficientBalance
	}

	if _, err := s.ledger.Lock(ctx, req.AgentID, req.SessionID, req.StakeAmount); err != nil {
		log.Debug().Err(err).Str("agent_id", req.AgentID).Msg("queue_join_escrow_failed")
		return nil, fmt.Errorf("%w: %w", ErrEscrowFailed, err)
	}

	tag := strategy.Normalize(req.StrategyTag)
	if tag == "" {
		tag = strategy.Normalize(sess.Strategy)
	}
	if !s.strategies.Known(tag) {
		tag = strategy.DefaultTag
	}
	rating := req.Rating
	if rating <= 0 {
		rating = sess.Rating
	}
	lo, hi := StakeRange(req.StakeAmount)
	now := s.now()
	entry := store.QueueEntry{
		ID:            store.NewPrefixedID(store.PrefixQueue),
		AgentID:       req.AgentID,
		SessionID:     req.SessionID,
		GameType:      req.GameType,
		StakeAmount:   req.StakeAmount,
		StakeRangeMin: lo,
		StakeRangeMax: hi,
		Strategy:      tag,
		RatingAtJoin:  rating,
		Status:        store.QueueSearching,
		JoinedAt:      now,
		ExpiresAt:     now.Add(s.queueTTL),
	}
	if err := s.store.InsertQueueEntry(ctx, entry); err != nil {
		s.refundHold(ctx, req.AgentID)
		if store.IsUniqueViolation(err) {
			return nil, ErrAlreadyQueued
		}
		return nil, fmt.Errorf("insert queue entry: %w", err)
	}

	s.metrics.QueueJoined(ctx, entry.GameType)
	log.Info().
		Str("agent_id", entry.AgentID).
		Str("queue_id", entry.ID).
		Str("game_type", entry.GameType).
		Int64("stake", entry.StakeAmount).
		Msg("queue_joined")
	return &entry, nil
}

// refundHold returns a hold taken by a Join that then failed. It runs even
// when the caller's context is already cancelled.
func (s *Service) refundHold(ctx context.Context, agentID string) {
	if err := s.ledger.Refund(context.WithoutCancel(ctx), agentID); err != nil {
		log.Error().Err(err).Str("agent_id", agentID).Msg("queue_join_refund_failed")
	}
}

// Leave removes the agent's searching entry and refunds its hold. An entry
// already paired by a concurrent FindMatch is not searching and yields
// ErrNotInQueue.
func (s *Service) Leave(ctx context.Context, agentID string) error {
	return s.leave(ctx, agentID, "leave")
}

func (s *Service) leave(ctx context.Context, agentID, reason string) error {
	if strings.TrimSpace(agentID) == "" {
		return ErrInvalidRequest
	}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		n, err := q.DeleteSearchingEntry(ctx, agentID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotInQueue
		}
		return s.ledger.RefundTx(ctx, q, agentID)
	})
	if err != nil {
		return err
	}
	s.metrics.QueueLeft(ctx, reason)
	log.Info().Str("agent_id", agentID).Str("reason", reason).Msg("queue_left")
	return nil
}

// FindMatch tries once to pair the agent's searching entry with the oldest
// compatible entry. It never blocks waiting for an opponent.
func (s *Service) FindMatch(ctx context.Context, agentID string) (*FindResult, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrInvalidRequest
	}
	var (
		res     *FindResult
		created bool
	)
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		res, created = nil, false
		self, err := q.GetSearchingEntry(ctx, agentID)
		if errors.Is(err, store.ErrNotFound) {
			res, err = existingMatch(ctx, q, agentID)
			return err
		}
		if err != nil {
			return err
		}
		now := s.now()
		if !self.ExpiresAt.After(now) {
			res = &FindResult{}
			return nil
		}
		// Unusable candidates stay in the result set, so the offset walks
		// past them page by page.
		for offset := 0; ; offset += candidatePage {
			candidates, err := q.ListCandidates(ctx, *self, now, candidatePage, offset)
			if err != nil {
				return err
			}
			for _, c := range candidates {
				m, err := s.tryPair(ctx, q, self.ID, c.ID, now)
				if errors.Is(err, errSelfTaken) {
					res, err = existingMatch(ctx, q, agentID)
					return err
				}
				if err != nil {
					return err
				}
				if m != nil {
					res = &FindResult{Matched: true, MatchID: m.ID, OpponentID: m.Player2ID, Stake: m.StakeAmount, Match: m}
					created = true
					return nil
				}
			}
			if len(candidates) < candidatePage {
				res = &FindResult{}
				return nil
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if created {
		m := res.Match
		s.metrics.MatchPaired(ctx, m.GameType)
		log.Info().
			Str("match_id", m.ID).
			Str("player1_id", m.Player1ID).
			Str("player2_id", m.Player2ID).
			Int64("stake", m.StakeAmount).
			Msg("match_found")
		if err := s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeMatchFound,
			MatchID:   m.ID,
			GameType:  m.GameType,
			Player1ID: m.Player1ID,
			Player2ID: m.Player2ID,
			Stake:     m.StakeAmount,
			At:        m.CreatedAt,
		}); err != nil {
			log.Warn().Err(err).Str("match_id", m.ID).Msg("event_publish_failed")
		}
	}
	return res, nil
}

var errSelfTaken = errors.New("self entry no longer searching")

// tryPair locks both entries and, if they are still searching and both
// sessions can cover the agreed stake, creates the match. A nil match with a
// nil error means this candidate is unusable.
func (s *Service) tryPair(ctx context.Context, q *store.Queries, selfID, otherID string, now time.Time) (*store.Match, error) {
	locked, err := q.LockQueueEntries(ctx, selfID, otherID)
	if err != nil {
		return nil, err
	}
	var self, other *store.QueueEntry
	for i := range locked {
		switch locked[i].ID {
		case selfID:
			self = &locked[i]
		case otherID:
			other = &locked[i]
		}
	}
	if self == nil || self.Status != store.QueueSearching {
		return nil, errSelfTaken
	}
	if other == nil || other.Status != store.QueueSearching || !self.Overlaps(*other) {
		return nil, nil
	}

	stake := AgreedStake(*self, *other)
	ok, err := sessionsCover(ctx, q, stake, self.SessionID, other.SessionID)
	if err != nil || !ok {
		return nil, err
	}
	for _, agentID := range []string{self.AgentID, other.AgentID} {
		hold, err := q.GetLockedEscrow(ctx, agentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if hold.MatchID != nil {
			return nil, nil
		}
	}

	m := store.Match{
		ID:               store.NewPrefixedID(store.PrefixMatch),
		Player1ID:        self.AgentID,
		Player2ID:        other.AgentID,
		Player1SessionID: self.SessionID,
		Player2SessionID: other.SessionID,
		Player1Strategy:  self.Strategy,
		Player2Strategy:  other.Strategy,
		GameType:         self.GameType,
		StakeAmount:      stake,
		BestOf:           s.bestOf,
		Status:           store.MatchInProgress,
		Rounds:           "[]",
		CreatedAt:        now,
	}
	if err := q.InsertMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("insert match: %w", err)
	}
	n, err := q.MarkEntriesFighting(ctx, m.ID, self.ID, other.ID)
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, fmt.Errorf("pair %s: marked %d of 2 queue entries", m.ID, n)
	}
	for _, agentID := range []string{self.AgentID, other.AgentID} {
		n, err := q.AttachEscrowToMatch(ctx, agentID, m.ID, stake)
		if err != nil {
			return nil, err
		}
		if n != 1 {
			return nil, fmt.Errorf("pair %s: escrow for %s not attached", m.ID, agentID)
		}
	}
	return &m, nil
}

// sessionsCover locks the sessions in id order and reports whether both are
// active and hold at least stake.
func sessionsCover(ctx context.Context, q *store.Queries, stake int64, ids ...string) (bool, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		sess, err := q.GetSessionForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if sess.Status != store.SessionActive || sess.Balance < stake {
			return false, nil
		}
	}
	return true, nil
}

// existingMatch reports the match an agent's entry was already paired into,
// or ErrNotInQueue.
func existingMatch(ctx context.Context, q *store.Queries, agentID string) (*FindResult, error) {
	entry, err := q.GetFightingEntry(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInQueue
	}
	if err != nil {
		return nil, err
	}
	if entry.MatchID == nil {
		return nil, ErrNotInQueue
	}
	m, err := q.GetMatch(ctx, *entry.MatchID)
	if err != nil {
		return nil, err
	}
	opponent := m.Player2ID
	if opponent == agentID {
		opponent = m.Player1ID
	}
	return &FindResult{Matched: true, MatchID: m.ID, OpponentID: opponent, Stake: m.StakeAmount, Match: m}, nil
}

func (s *Service) GetQueue(ctx context.Context, gameType string) ([]store.QueueEntry, error) {
	return s.store.ListQueue(ctx, strings.TrimSpace(gameType), s.now())
}

// CleanupExpired removes searching entries past their expiry and refunds
// their holds. Safe to run from several workers at once.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := s.store.ListExpiredEntries(ctx, s.now(), sweepBatch)
		if err != nil {
			return total, err
		}
		removed := 0
		for _, e := range expired {
			err := s.leave(ctx, e.AgentID, "expired")
			switch {
			case err == nil:
				removed++
			case errors.Is(err, ErrNotInQueue):
			default:
				log.Warn().Err(err).Str("agent_id", e.AgentID).Msg("queue_expire_failed")
			}
		}
		total += removed
		if len(expired) < sweepBatch || removed == 0 {
			break
		}
	}
	if total > 0 {
		log.Info().Int("count", total).Msg("cleanup_expired")
	}
	return total, nil
}

// ReconcileEscrow refunds holds older than grace that have neither a match
// nor a searching queue entry behind them.
func (s *Service) ReconcileEscrow(ctx context.Context, grace time.Duration) (int, error) {
	orphans, err := s.store.ListOrphanedEscrow(ctx, s.now().Add(-grace), sweepBatch)
	if err != nil {
		return 0, err
	}
	refunded := 0
	for _, o := range orphans {
		swept := false
		err := s.store.InTx(ctx, func(q *store.Queries) error {
			swept = false
			if _, err := q.GetSearchingEntry(ctx, o.AgentID); err == nil {
				return nil
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			swept = true
			return s.ledger.RefundTx(ctx, q, o.AgentID)
		})
		if err != nil {
			log.Warn().Err(err).Str("agent_id", o.AgentID).Str("escrow_id", o.ID).Msg("escrow_reconcile_failed")
			continue
		}
		if swept {
			refunded++
		}
	}
	s.metrics.EscrowSwept(ctx, refunded)
	if refunded > 0 {
		log.Info().Int("count", refunded).Msg("escrow_reconciled")
	}
	return refunded, nil
}
