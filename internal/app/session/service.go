package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-arena/internal/ledger"
	"agent-arena/internal/rating"
	"agent-arena/internal/store"
	"agent-arena/internal/strategy"

	"github.com/rs/zerolog/log"
)

const escrowHistoryLimit = 50

// Service administers funded agent sessions. Settlement is the only other
// writer of a session's balance and stats.
type Service struct {
	store      *store.Store
	ledger     *ledger.Ledger
	strategies *strategy.Registry
	now        func() time.Time
}

func NewService(st *store.Store, led *ledger.Ledger, strategies *strategy.Registry) *Service {
	if strategies == nil {
		strategies = strategy.NewRegistry(nil)
	}
	return &Service{store: st, ledger: led, strategies: strategies, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*SessionResponse, error) {
	in.AgentID = strings.TrimSpace(in.AgentID)
	if in.AgentID == "" || in.InitialBalance < 0 || in.Rating < 0 {
		return nil, ErrInvalidRequest
	}
	tag := strategy.Normalize(in.Strategy)
	if tag == "" {
		tag = strategy.DefaultTag
	}
	if !s.strategies.Known(tag) {
		return nil, ErrUnknownStrategy
	}
	if in.Rating == 0 {
		in.Rating = rating.DefaultRating
	}
	now := s.now()
	sess := store.Session{
		ID:        store.NewPrefixedID(store.PrefixSession),
		AgentID:   in.AgentID,
		Status:    store.SessionActive,
		Balance:   in.InitialBalance,
		Strategy:  tag,
		Rating:    in.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrSessionExists
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().
		Str("agent_id", sess.AgentID).
		Str("session_id", sess.ID).
		Int64("balance", sess.Balance).
		Str("strategy", sess.Strategy).
		Msg("session_created")
	return toResponse(&sess), nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*SessionResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return toResponse(sess), nil
}

func (s *Service) ActiveByAgent(ctx context.Context, agentID string) (*SessionResponse, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, ErrInvalidRequest
	}
	sess, err := s.store.GetActiveSessionByAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return toResponse(sess), nil
}

// Topup credits an active session.
func (s *Service) Topup(ctx context.Context, in TopupInput) (*SessionResponse, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" || in.Amount <= 0 {
		return nil, ErrInvalidRequest
	}
	if err := s.store.TopupSession(ctx, in.SessionID, in.Amount, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	log.Info().Str("session_id", in.SessionID).Int64("amount", in.Amount).Msg("session_topup")
	return s.Get(ctx, in.SessionID)
}

// Close ends an active session. A session with stake held in escrow is busy
// and stays open until the agent leaves the queue or its match settles.
func (s *Service) Close(ctx context.Context, sessionID string) (*SessionResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		sess, err := q.GetSessionForUpdate(ctx, sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if sess.Status != store.SessionActive {
			return ErrSessionNotFound
		}
		held, err := q.CountLockedEscrow(ctx, sess.AgentID)
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrSessionBusy
		}
		return q.CloseSession(ctx, sessionID, s.now())
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sessionID).Msg("session_closed")
	return s.Get(ctx, sessionID)
}

// EscrowHistory lists the agent's escrow records, newest first.
func (s *Service) EscrowHistory(ctx context.Context, agentID string) (*EscrowResponse, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, ErrInvalidRequest
	}
	recs, err := s.ledger.History(ctx, agentID, escrowHistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]EscrowItem, 0, len(recs))
	for _, r := range recs {
		item := EscrowItem{
			EscrowID:   r.ID,
			SessionID:  r.SessionID,
			Amount:     r.Amount,
			Status:     r.Status,
			LockedAt:   r.LockedAt,
			ReleasedAt: r.ReleasedAt,
		}
		if r.MatchID != nil {
			item.MatchID = *r.MatchID
		}
		out = append(out, item)
	}
	return &EscrowResponse{AgentID: agentID, Items: out}, nil
}
