package rps

import "fmt"

type Move int

const (
	Rock     Move = 1
	Paper    Move = 2
	Scissors Move = 3
)

var Moves = [3]Move{Rock, Paper, Scissors}

func (m Move) Valid() bool {
	return m >= Rock && m <= Scissors
}

func (m Move) String() string {
	switch m {
	case Rock:
		return "Rock"
	case Paper:
		return "Paper"
	case Scissors:
		return "Scissors"
	default:
		return "Unknown"
	}
}

// Beats returns the move that m defeats.
func (m Move) Beats() Move {
	switch m {
	case Rock:
		return Scissors
	case Paper:
		return Rock
	case Scissors:
		return Paper
	default:
		return 0
	}
}

// Counter returns the move that defeats m.
func Counter(m Move) Move {
	switch m {
	case Rock:
		return Paper
	case Paper:
		return Scissors
	case Scissors:
		return Rock
	default:
		return 0
	}
}

type Outcome string

const (
	OutcomeP1   Outcome = "p1"
	OutcomeP2   Outcome = "p2"
	OutcomeDraw Outcome = "draw"
)

// outcomes[a-1][b-1] is the result of player 1 playing a against player 2
// playing b. Rows and columns are Rock, Paper, Scissors.
var outcomes = [3][3]Outcome{
	{OutcomeDraw, OutcomeP2, OutcomeP1},
	{OutcomeP1, OutcomeDraw, OutcomeP2},
	{OutcomeP2, OutcomeP1, OutcomeDraw},
}

// ResolveRound decides a single round. Both moves must be valid.
func ResolveRound(p1, p2 Move) (Outcome, error) {
	if !p1.Valid() {
		return "", fmt.Errorf("player 1: invalid move %d", p1)
	}
	if !p2.Valid() {
		return "", fmt.Errorf("player 2: invalid move %d", p2)
	}
	return outcomes[p1-1][p2-1], nil
}
