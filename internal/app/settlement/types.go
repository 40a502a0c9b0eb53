package settlement

import (
	"time"

	"agent-arena/internal/match"
)

const (
	StatusSettled        = "settled"
	StatusAlreadySettled = "already_settled"
)

type Result struct {
	Status         string              `json:"status"`
	MatchID        string              `json:"match_id"`
	Player1ID      string              `json:"player1_id"`
	Player2ID      string              `json:"player2_id"`
	WinnerID       string              `json:"winner_id,omitempty"`
	LoserID        string              `json:"loser_id,omitempty"`
	IsDraw         bool                `json:"is_draw"`
	Stake          int64               `json:"stake_amount"`
	Pot            int64               `json:"pot"`
	HouseFee       int64               `json:"house_fee"`
	WinnerPayout   int64               `json:"winner_payout,omitempty"`
	P1Score        int                 `json:"p1_score"`
	P2Score        int                 `json:"p2_score"`
	Rounds         []match.RoundResult `json:"rounds"`
	RatingDelta1   int                 `json:"rating_delta_p1"`
	RatingDelta2   int                 `json:"rating_delta_p2"`
	ServerSeedHash string              `json:"server_seed_hash"`
	DurationMs     int64               `json:"duration_ms"`
	SettledAt      *time.Time          `json:"settled_at,omitempty"`
}

// Payout is the money side of a settled match.
type Payout struct {
	Pot          int64
	HouseFee     int64
	WinnerPayout int64
	// DrawShare is what each side pays on a draw.
	DrawShare int64
}
