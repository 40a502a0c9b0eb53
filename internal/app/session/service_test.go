package session

import (
	"context"
	"errors"
	"testing"

	"agent-arena/internal/ledger"
	"agent-arena/internal/store"
	"agent-arena/internal/testutil"
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := testutil.OpenTestStore(t)
	return NewService(st, ledger.New(st), nil), st
}

func TestCreateSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	got, err := svc.Create(ctx, CreateInput{AgentID: "a", InitialBalance: 500, Strategy: " Aggressive "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Status != store.SessionActive || got.Balance != 500 || got.Strategy != "aggressive" || got.Rating != 1000 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if _, err := svc.Create(ctx, CreateInput{AgentID: "a", InitialBalance: 1}); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("second active session: %v", err)
	}

	def, err := svc.Create(ctx, CreateInput{AgentID: "b"})
	if err != nil || def.Strategy != "conservative" {
		t.Fatalf("default strategy: %+v %v", def, err)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"blank agent", CreateInput{AgentID: " "}, ErrInvalidRequest},
		{"negative balance", CreateInput{AgentID: "a", InitialBalance: -1}, ErrInvalidRequest},
		{"unknown strategy", CreateInput{AgentID: "a", Strategy: "oracle"}, ErrUnknownStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTopupAndClose(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{AgentID: "a", InitialBalance: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Topup(ctx, TopupInput{SessionID: s.SessionID, Amount: 50})
	if err != nil || got.Balance != 150 {
		t.Fatalf("topup: %+v %v", got, err)
	}
	if _, err := svc.Topup(ctx, TopupInput{SessionID: s.SessionID}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("zero topup: %v", err)
	}

	closed, err := svc.Close(ctx, s.SessionID)
	if err != nil || closed.Status != store.SessionClosed {
		t.Fatalf("close: %+v %v", closed, err)
	}
	if _, err := svc.Close(ctx, s.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second close: %v", err)
	}
	if _, err := svc.Topup(ctx, TopupInput{SessionID: s.SessionID, Amount: 10}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("topup closed session: %v", err)
	}
	if _, err := svc.ActiveByAgent(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("active after close: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{AgentID: "a", InitialBalance: 10}); err != nil {
		t.Fatalf("new session after close: %v", err)
	}
}

func TestCloseRefusedWhileStakeHeld(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{AgentID: "a", InitialBalance: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	led := ledger.New(st)
	if _, err := led.Lock(ctx, "a", s.SessionID, 40); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := svc.Close(ctx, s.SessionID); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("close with hold: %v", err)
	}
	if err := led.Refund(ctx, "a"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if _, err := svc.Close(ctx, s.SessionID); err != nil {
		t.Fatalf("close after refund: %v", err)
	}

	hist, err := svc.EscrowHistory(ctx, "a")
	if err != nil || len(hist.Items) != 1 || hist.Items[0].Status != store.EscrowRefunded || hist.Items[0].ReleasedAt == nil {
		t.Fatalf("history: %+v %v", hist, err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Get(context.Background(), "ses_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("get: %v", err)
	}
}
