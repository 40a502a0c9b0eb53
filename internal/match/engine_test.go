package match

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"agent-arena/internal/rating"
	"agent-arena/internal/rps"
	"agent-arena/internal/strategy"
)

type scripted struct {
	moves []rps.Move
	seen  [][]strategy.RoundView
}

func (s *scripted) Tag() string { return "scripted" }

func (s *scripted) SelectMove(history []strategy.RoundView) rps.Move {
	s.seen = append(s.seen, append([]strategy.RoundView(nil), history...))
	return s.moves[len(history)%len(s.moves)]
}

func newTestEngine() *Engine {
	e := NewEngine(rating.New(32, 100), 3)
	e.seeds = func() (rps.Seeds, error) {
		return rps.Seeds{ServerSeed: "s", ServerSeedHash: rps.HashSeed("s"), ClientSeed1: "c1", ClientSeed2: "c2"}, nil
	}
	return e
}

func agent(id string, s strategy.MoveStrategy) Agent {
	return Agent{ID: id, SessionID: "sess_" + id, Strategy: s, Rating: 1000, Balance: 100}
}

func TestPlayMatchStopsAtMajority(t *testing.T) {
	e := newTestEngine()
	p1 := &scripted{moves: []rps.Move{rps.Rock}}
	p2 := &scripted{moves: []rps.Move{rps.Scissors}}
	res, err := e.PlayMatch("m1", agent("a", p1), agent("b", p2), 5)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.TotalRounds() != 3 {
		t.Fatalf("expected early stop after 3 rounds, got %d", res.TotalRounds())
	}
	if res.WinnerID != "a" || res.LoserID != "b" || res.IsDraw {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	if res.P1Score != 3 || res.P2Score != 0 {
		t.Fatalf("unexpected score %d-%d", res.P1Score, res.P2Score)
	}
	if res.RatingDelta1 != 16 || res.RatingDelta2 != -16 {
		t.Fatalf("unexpected deltas %d/%d", res.RatingDelta1, res.RatingDelta2)
	}
	for i, r := range res.Rounds {
		if r.Round != i+1 || r.Winner != rps.OutcomeP1 {
			t.Fatalf("round %d: %+v", i, r)
		}
	}
	if res.ServerSeedHash != rps.HashSeed(res.ServerSeed) {
		t.Fatal("seed commitment mismatch")
	}
}

func TestPlayMatchAllDrawsIsDraw(t *testing.T) {
	e := newTestEngine()
	p1 := &scripted{moves: []rps.Move{rps.Paper}}
	p2 := &scripted{moves: []rps.Move{rps.Paper}}
	res, err := e.PlayMatch("m2", agent("a", p1), agent("b", p2), 3)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.IsDraw || res.WinnerID != "" || res.LoserID != "" {
		t.Fatalf("expected draw, got %+v", res)
	}
	if res.TotalRounds() != 3 {
		t.Fatalf("expected all rounds played, got %d", res.TotalRounds())
	}
	if res.RatingDelta1 != 0 || res.RatingDelta2 != 0 {
		t.Fatalf("expected zero deltas for equal-rating draw, got %d/%d", res.RatingDelta1, res.RatingDelta2)
	}
}

func TestPlayMatchPlayerTwoWins(t *testing.T) {
	e := newTestEngine()
	// p1: R, R, R ; p2: P, R, P -> p2, draw, p2
	p1 := &scripted{moves: []rps.Move{rps.Rock}}
	p2 := &scripted{moves: []rps.Move{rps.Paper, rps.Rock}}
	res, err := e.PlayMatch("m3", agent("a", p1), agent("b", p2), 3)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.WinnerID != "b" || res.LoserID != "a" {
		t.Fatalf("expected b to win, got %+v", res)
	}
	if res.TotalRounds() != 3 || res.P2Score != 2 || res.P1Score != 0 {
		t.Fatalf("unexpected rounds/score: %d rounds %d-%d", res.TotalRounds(), res.P1Score, res.P2Score)
	}
	if res.RatingDelta1 >= 0 || res.RatingDelta2 <= 0 {
		t.Fatalf("unexpected deltas %d/%d", res.RatingDelta1, res.RatingDelta2)
	}
}

func TestPlayMatchHistoryIsPerSide(t *testing.T) {
	e := newTestEngine()
	p1 := &scripted{moves: []rps.Move{rps.Rock, rps.Paper}}
	p2 := &scripted{moves: []rps.Move{rps.Rock}}
	if _, err := e.PlayMatch("m4", agent("a", p1), agent("b", p2), 3); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(p1.seen[0]) != 0 || len(p2.seen[0]) != 0 {
		t.Fatal("first round must see empty history")
	}
	// round 1 was Rock vs Rock (draw); round 2 p1 plays Paper and wins.
	h2 := p2.seen[2]
	if h2[1].Own != rps.Rock || h2[1].Opponent != rps.Paper || h2[1].Outcome != strategy.OutcomeLoss {
		t.Fatalf("p2 view of round 2 wrong: %+v", h2[1])
	}
	h1 := p1.seen[2]
	if h1[1].Own != rps.Paper || h1[1].Opponent != rps.Rock || h1[1].Outcome != strategy.OutcomeWin {
		t.Fatalf("p1 view of round 2 wrong: %+v", h1[1])
	}
}

func TestPlayMatchDefaultsBestOf(t *testing.T) {
	e := newTestEngine()
	p1 := &scripted{moves: []rps.Move{rps.Scissors}}
	p2 := &scripted{moves: []rps.Move{rps.Scissors}}
	res, err := e.PlayMatch("m5", agent("a", p1), agent("b", p2), 0)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.TotalRounds() != DefaultBestOf {
		t.Fatalf("expected %d rounds, got %d", DefaultBestOf, res.TotalRounds())
	}
}

func TestPlayMatchRejectsMissingStrategy(t *testing.T) {
	e := newTestEngine()
	_, err := e.PlayMatch("m6", Agent{ID: "a"}, agent("b", &scripted{moves: []rps.Move{rps.Rock}}), 3)
	if !errors.Is(err, ErrInvalidAgent) {
		t.Fatalf("expected ErrInvalidAgent, got %v", err)
	}
}

func TestPlayMatchDuration(t *testing.T) {
	e := newTestEngine()
	base := time.Unix(1700000000, 0)
	calls := 0
	e.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 7 * time.Millisecond)
	}
	res, err := e.PlayMatch("m7", agent("a", &scripted{moves: []rps.Move{rps.Rock}}), agent("b", &scripted{moves: []rps.Move{rps.Paper}}), 3)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.DurationMs != 7 {
		t.Fatalf("expected 7ms, got %d", res.DurationMs)
	}
}

func TestPlayMatchRealStrategiesAlwaysTerminate(t *testing.T) {
	e := NewEngine(rating.New(0, 0), 0)
	reg := strategy.NewRegistry(rand.New(rand.NewPCG(7, 9)))
	for i := 0; i < 200; i++ {
		s1, _ := reg.Lookup(reg.Tags()[i%len(reg.Tags())])
		s2, _ := reg.Lookup(strategy.TagCalculated)
		res, err := e.PlayMatch("m", agent("a", s1), agent("b", s2), 5)
		if err != nil {
			t.Fatalf("play: %v", err)
		}
		if n := res.TotalRounds(); n < 3 || n > 5 {
			t.Fatalf("rounds out of range: %d", n)
		}
		if res.IsDraw == (res.P1Score != res.P2Score) {
			t.Fatalf("draw flag inconsistent with score %d-%d", res.P1Score, res.P2Score)
		}
		if res.RatingDelta1 != -res.RatingDelta2 {
			t.Fatalf("deltas not opposite: %d/%d", res.RatingDelta1, res.RatingDelta2)
		}
	}
}
