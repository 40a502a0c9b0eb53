package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agent-arena/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyLocked = errors.New("already_locked")
	ErrInvalidAmount = errors.New("invalid_amount")
)

// Ledger holds stakes in escrow while an agent is queued or matched. Records
// are never deleted; closing one stamps released_at.
type Ledger struct {
	Store *store.Store
	now   func() time.Time
}

func New(s *store.Store) *Ledger {
	return &Ledger{Store: s, now: time.Now}
}

// Lock places a hold of amount on the agent's balance. The caller has already
// checked the balance and session status; Lock only guards against a second
// concurrent hold.
func (l *Ledger) Lock(ctx context.Context, agentID, sessionID string, amount int64) (*store.EscrowRecord, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := l.Store.GetLockedEscrow(ctx, agentID); err == nil {
		return nil, ErrAlreadyLocked
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	rec := store.EscrowRecord{
		ID:        store.NewPrefixedID(store.PrefixEscrow),
		AgentID:   agentID,
		SessionID: sessionID,
		Amount:    amount,
		Status:    store.EscrowLocked,
		LockedAt:  l.now(),
	}
	if err := l.Store.InsertEscrow(ctx, rec); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("insert escrow: %w", err)
	}
	log.Debug().Str("agent_id", agentID).Str("escrow_id", rec.ID).Int64("amount", amount).Msg("escrow_locked")
	return &rec, nil
}

// Release marks the agent's locked record released. It is a no-op when
// nothing is locked.
func (l *Ledger) Release(ctx context.Context, agentID string) error {
	n, err := l.Store.CloseLockedEscrow(ctx, agentID, store.EscrowReleased, l.now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug().Str("agent_id", agentID).Msg("escrow_released")
	}
	return nil
}

// Refund returns a hold taken for a queue entry that never reached a match.
// Holds already attached to a match are left for settlement.
func (l *Ledger) Refund(ctx context.Context, agentID string) error {
	return l.RefundTx(ctx, l.Store.Queries, agentID)
}

// RefundTx is Refund scoped to q, so the hold closes together with the
// caller's other writes.
func (l *Ledger) RefundTx(ctx context.Context, q *store.Queries, agentID string) error {
	n, err := q.CloseUnmatchedEscrow(ctx, agentID, store.EscrowRefunded, l.now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug().Str("agent_id", agentID).Msg("escrow_refunded")
	}
	return nil
}

// ReleaseMatch releases both holds of a settled match inside the settlement
// transaction.
func (l *Ledger) ReleaseMatch(ctx context.Context, q *store.Queries, matchID string) (int64, error) {
	return q.ReleaseMatchEscrow(ctx, matchID, l.now())
}

func (l *Ledger) History(ctx context.Context, agentID string, limit int) ([]store.EscrowRecord, error) {
	return l.Store.ListEscrowByAgent(ctx, agentID, limit)
}
