package match

import (
	"errors"
	"fmt"
	"time"

	"agent-arena/internal/rating"
	"agent-arena/internal/rps"
	"agent-arena/internal/strategy"
)

var ErrInvalidAgent = errors.New("invalid_agent")

type Engine struct {
	Rating        rating.Calculator
	DefaultBestOf int

	seeds func() (rps.Seeds, error)
	now   func() time.Time
}

func NewEngine(calc rating.Calculator, defaultBestOf int) *Engine {
	if defaultBestOf < 1 {
		defaultBestOf = DefaultBestOf
	}
	return &Engine{
		Rating:        calc,
		DefaultBestOf: defaultBestOf,
		seeds:         rps.GenerateSeeds,
		now:           time.Now,
	}
}

// PlayMatch runs a complete best-of-N contest between a1 (player 1) and a2
// (player 2) and returns the finished result.
func (e *Engine) PlayMatch(matchID string, a1, a2 Agent, bestOf int) (*Result, error) {
	if a1.ID == "" || a2.ID == "" || a1.Strategy == nil || a2.Strategy == nil {
		return nil, ErrInvalidAgent
	}
	if bestOf < 1 {
		bestOf = e.DefaultBestOf
	}
	start := e.now()
	seeds, err := e.seeds()
	if err != nil {
		return nil, fmt.Errorf("generate seeds: %w", err)
	}

	winsNeeded := (bestOf + 1) / 2
	res := &Result{
		MatchID:        matchID,
		Rounds:         make([]RoundResult, 0, bestOf),
		ServerSeed:     seeds.ServerSeed,
		ServerSeedHash: seeds.ServerSeedHash,
		ClientSeed1:    seeds.ClientSeed1,
		ClientSeed2:    seeds.ClientSeed2,
	}
	var h1, h2 []strategy.RoundView
	for round := 1; round <= bestOf; round++ {
		if res.P1Score >= winsNeeded || res.P2Score >= winsNeeded {
			break
		}
		m1 := a1.Strategy.SelectMove(h1)
		m2 := a2.Strategy.SelectMove(h2)
		if !m1.Valid() {
			return nil, fmt.Errorf("player 1 strategy %s: invalid move %d", a1.Strategy.Tag(), m1)
		}
		if !m2.Valid() {
			return nil, fmt.Errorf("player 2 strategy %s: invalid move %d", a2.Strategy.Tag(), m2)
		}
		outcome, err := rps.ResolveRound(m1, m2)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case rps.OutcomeP1:
			res.P1Score++
		case rps.OutcomeP2:
			res.P2Score++
		}
		res.Rounds = append(res.Rounds, RoundResult{
			Round:     round,
			P1Move:    m1,
			P2Move:    m2,
			P1MoveStr: m1.String(),
			P2MoveStr: m2.String(),
			Winner:    outcome,
		})
		h1 = append(h1, strategy.RoundView{Own: m1, Opponent: m2, Outcome: viewOutcome(outcome, rps.OutcomeP1)})
		h2 = append(h2, strategy.RoundView{Own: m2, Opponent: m1, Outcome: viewOutcome(outcome, rps.OutcomeP2)})
	}

	score := rating.ScoreDraw
	switch {
	case res.P1Score > res.P2Score:
		res.WinnerID, res.LoserID = a1.ID, a2.ID
		score = rating.ScoreWin
	case res.P2Score > res.P1Score:
		res.WinnerID, res.LoserID = a2.ID, a1.ID
		score = rating.ScoreLoss
	default:
		res.IsDraw = true
	}
	res.RatingDelta1, res.RatingDelta2 = e.Rating.ComputeDelta(a1.Rating, a2.Rating, score)
	res.DurationMs = e.now().Sub(start).Milliseconds()
	return res, nil
}

func viewOutcome(o, self rps.Outcome) strategy.Outcome {
	switch o {
	case rps.OutcomeDraw:
		return strategy.OutcomeDraw
	case self:
		return strategy.OutcomeWin
	default:
		return strategy.OutcomeLoss
	}
}
