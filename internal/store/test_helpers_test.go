package store

import (
	"context"
	"testing"
	"time"
)

func openStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, "sqlite::memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st, ctx
}

func mustCreateSession(t *testing.T, st *Store, ctx context.Context, agentID string, balance int64) Session {
	t.Helper()
	now := time.Now()
	s := Session{
		ID:        NewPrefixedID(PrefixSession),
		AgentID:   agentID,
		Status:    SessionActive,
		Balance:   balance,
		Strategy:  "conservative",
		Rating:    1000,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func mustLock(t *testing.T, st *Store, ctx context.Context, s Session, amount int64) EscrowRecord {
	t.Helper()
	e := EscrowRecord{
		ID:        NewPrefixedID(PrefixEscrow),
		AgentID:   s.AgentID,
		SessionID: s.ID,
		Amount:    amount,
		Status:    EscrowLocked,
		LockedAt:  time.Now(),
	}
	if err := st.InsertEscrow(ctx, e); err != nil {
		t.Fatalf("insert escrow: %v", err)
	}
	return e
}

func queueEntry(s Session, stake int64, joined time.Time) QueueEntry {
	return QueueEntry{
		ID:            NewPrefixedID(PrefixQueue),
		AgentID:       s.AgentID,
		SessionID:     s.ID,
		GameType:      "RPS",
		StakeAmount:   stake,
		StakeRangeMin: stake * 7 / 10,
		StakeRangeMax: stake * 13 / 10,
		Strategy:      s.Strategy,
		RatingAtJoin:  s.Rating,
		Status:        QueueSearching,
		JoinedAt:      joined,
		ExpiresAt:     joined.Add(5 * time.Minute),
	}
}
