package match

import (
	"agent-arena/internal/rps"
	"agent-arena/internal/strategy"
)

const DefaultBestOf = 3

// Agent is the snapshot the engine needs for one participant. The engine
// never reads or writes persistent state.
type Agent struct {
	ID          string
	SessionID   string
	Strategy    strategy.MoveStrategy
	Rating      int
	Balance     int64
	GamesPlayed int
}

type RoundResult struct {
	Round     int         `json:"round"`
	P1Move    rps.Move    `json:"p1_move"`
	P2Move    rps.Move    `json:"p2_move"`
	P1MoveStr string      `json:"p1_move_name"`
	P2MoveStr string      `json:"p2_move_name"`
	Winner    rps.Outcome `json:"winner"`
}

type Result struct {
	MatchID        string        `json:"match_id"`
	WinnerID       string        `json:"winner_id,omitempty"`
	LoserID        string        `json:"loser_id,omitempty"`
	IsDraw         bool          `json:"is_draw"`
	Rounds         []RoundResult `json:"rounds"`
	P1Score        int           `json:"p1_score"`
	P2Score        int           `json:"p2_score"`
	ServerSeed     string        `json:"server_seed"`
	ServerSeedHash string        `json:"server_seed_hash"`
	ClientSeed1    string        `json:"client_seed_1"`
	ClientSeed2    string        `json:"client_seed_2"`
	DurationMs     int64         `json:"duration_ms"`
	RatingDelta1   int           `json:"rating_delta_p1"`
	RatingDelta2   int           `json:"rating_delta_p2"`
}

func (r *Result) TotalRounds() int {
	return len(r.Rounds)
}
