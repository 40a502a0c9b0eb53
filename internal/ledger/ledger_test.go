package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"agent-arena/internal/store"
)

func newLedger(t *testing.T) (*Ledger, *store.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite::memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(st), st, ctx
}

func createSession(t *testing.T, st *store.Store, ctx context.Context, agentID string) store.Session {
	t.Helper()
	now := time.Now()
	s := store.Session{
		ID: store.NewPrefixedID(store.PrefixSession), AgentID: agentID, Status: store.SessionActive,
		Balance: 100, Strategy: "conservative", Rating: 1000, CreatedAt: now, UpdatedAt: now,
	}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestLockRejectsSecondHold(t *testing.T) {
	l, st, ctx := newLedger(t)
	s := createSession(t, st, ctx, "a")
	if _, err := l.Lock(ctx, "a", s.ID, 50); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := l.Lock(ctx, "a", s.ID, 10); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
	if _, err := l.Lock(ctx, "a", s.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestReleaseAndRefundAreIdempotent(t *testing.T) {
	l, st, ctx := newLedger(t)
	s := createSession(t, st, ctx, "a")
	if err := l.Release(ctx, "a"); err != nil {
		t.Fatalf("release with nothing locked: %v", err)
	}
	if err := l.Refund(ctx, "a"); err != nil {
		t.Fatalf("refund with nothing locked: %v", err)
	}

	if _, err := l.Lock(ctx, "a", s.ID, 50); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.Refund(ctx, "a"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := l.Refund(ctx, "a"); err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if _, err := st.GetLockedEscrow(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected nothing locked, got %v", err)
	}

	if _, err := l.Lock(ctx, "a", s.ID, 30); err != nil {
		t.Fatalf("relock: %v", err)
	}
	if err := l.Release(ctx, "a"); err != nil {
		t.Fatalf("release: %v", err)
	}

	hist, err := l.History(ctx, "a", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	statuses := map[string]int{}
	for _, h := range hist {
		statuses[h.Status]++
		if h.ReleasedAt == nil {
			t.Fatalf("closed record without released_at: %+v", h)
		}
	}
	if statuses[store.EscrowRefunded] != 1 || statuses[store.EscrowReleased] != 1 {
		t.Fatalf("unexpected audit trail: %v", statuses)
	}
}

func TestReleaseMatchInsideTx(t *testing.T) {
	l, st, ctx := newLedger(t)
	s := createSession(t, st, ctx, "a")
	if _, err := l.Lock(ctx, "a", s.ID, 50); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := st.AttachEscrowToMatch(ctx, "a", "pvp_x", 50); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := l.Refund(ctx, "a"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if _, err := st.GetLockedEscrow(ctx, "a"); err != nil {
		t.Fatalf("matched hold must survive refund: %v", err)
	}
	var released int64
	err := st.InTx(ctx, func(q *store.Queries) error {
		n, err := l.ReleaseMatch(ctx, q, "pvp_x")
		released = n
		return err
	})
	if err != nil || released != 1 {
		t.Fatalf("release match: n=%d err=%v", released, err)
	}
}
