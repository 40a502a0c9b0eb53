package spectatorpush

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agent-arena/internal/events"
	"agent-arena/internal/spectatorpush/platforms"
)

func TestManagerForwardsFeedAsMatchPanel(t *testing.T) {
	feed := events.NewBuffer(10)
	fake := &fakeAdapter{}
	target := fakeTarget
	target.Panel = true
	m := NewManager(Config{Enabled: true, Targets: []PushTarget{target}, Workers: 1})
	m.adapters = map[string]platforms.Adapter{"fake": fake}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx, feed); err != nil {
		t.Fatalf("start: %v", err)
	}

	base := events.Event{MatchID: "pvp_1", Player1ID: "x", Player2ID: "y", Stake: 100}
	found := base
	found.Type = events.TypeMatchFound
	_ = feed.Publish(context.Background(), found)
	settled := base
	settled.Type, settled.WinnerID, settled.HouseFee = events.TypeMatchSettled, "x", 10
	_ = feed.Publish(context.Background(), settled)

	if !waitFor(t, time.Second, func() bool { return len(fake.Forgotten()) == 1 }) {
		t.Fatalf("panel not closed, calls=%d", fake.Calls())
	}
	msgs := fake.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].PanelKey == "" || msgs[0].PanelKey != msgs[1].PanelKey || !strings.HasSuffix(msgs[0].PanelKey, "|pvp_1") {
		t.Fatalf("messages should share the match panel: %q %q", msgs[0].PanelKey, msgs[1].PanelKey)
	}
	if !strings.HasPrefix(msgs[1].Title, "Match Settled") {
		t.Fatalf("unexpected second title: %s", msgs[1].Title)
	}
}

func TestManagerDisabledIsNoop(t *testing.T) {
	m := NewManager(Config{Enabled: false, Targets: []PushTarget{fakeTarget}})
	if err := m.Start(context.Background(), events.NewBuffer(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.started {
		t.Fatal("disabled manager should not start")
	}
}

func TestConfigFileAutoReloadAppliesWithoutRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatalf("write initial targets: %v", err)
	}
	fake := &fakeAdapter{}
	m := startManager(t, Config{ConfigPath: path, ConfigReload: 20 * time.Millisecond, Workers: 1}, fake)

	ev := events.Event{Type: events.TypeMatchFound, MatchID: "pvp_1", Player1ID: "alice", Player2ID: "bob", Stake: 50}
	m.handleEvent(ev)
	time.Sleep(40 * time.Millisecond)
	if fake.Calls() != 0 {
		t.Fatalf("expected no calls before config reload, got %d", fake.Calls())
	}

	updated := `[{"platform":"fake","endpoint":"https://example.com","scope_type":"agent","scope_value":"alice","enabled":true}]`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write updated targets: %v", err)
	}
	if !waitFor(t, 500*time.Millisecond, func() bool { return len(m.currentTargets()) == 1 }) {
		t.Fatal("expected reloaded targets in manager")
	}

	m.handleEvent(ev)
	if !waitFor(t, 500*time.Millisecond, func() bool { return fake.Calls() >= 1 }) {
		t.Fatal("expected a call after reload")
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("write broken targets: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if len(m.currentTargets()) != 1 {
		t.Fatal("broken file should keep the previous targets")
	}
}
