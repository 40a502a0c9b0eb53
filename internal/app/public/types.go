package public

import (
	"time"

	"agent-arena/internal/match"
)

type QueueResponse struct {
	GameType string      `json:"game_type,omitempty"`
	Items    []QueueItem `json:"items"`
}

type QueueItem struct {
	AgentID       string    `json:"agent_id"`
	GameType      string    `json:"game_type"`
	StakeAmount   int64     `json:"stake_amount"`
	StakeRangeMin int64     `json:"stake_range_min"`
	StakeRangeMax int64     `json:"stake_range_max"`
	Strategy      string    `json:"strategy"`
	Rating        int       `json:"rating"`
	Status        string    `json:"status"`
	MatchID       string    `json:"match_id,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type LeaderboardResponse struct {
	Items []LeaderboardItem `json:"items"`
	Limit int               `json:"limit"`
}

type LeaderboardItem struct {
	Rank        int     `json:"rank"`
	AgentID     string  `json:"agent_id"`
	Rating      int     `json:"rating"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	GamesPlayed int     `json:"games_played"`
	WinRate     float64 `json:"win_rate"`
	NetEarnings int64   `json:"net_earnings"`
}

type MatchesResponse struct {
	Items []MatchItem `json:"items"`
	Limit int         `json:"limit"`
}

type MatchItem struct {
	MatchID        string              `json:"match_id"`
	GameType       string              `json:"game_type"`
	Player1ID      string              `json:"player1_id"`
	Player2ID      string              `json:"player2_id"`
	Status         string              `json:"status"`
	StakeAmount    int64               `json:"stake_amount"`
	BestOf         int                 `json:"best_of"`
	WinnerID       string              `json:"winner_id,omitempty"`
	IsDraw         bool                `json:"is_draw"`
	P1Score        int                 `json:"p1_score"`
	P2Score        int                 `json:"p2_score"`
	HouseFee       int64               `json:"house_fee"`
	RatingDelta1   int                 `json:"rating_delta_p1"`
	RatingDelta2   int                 `json:"rating_delta_p2"`
	DurationMs     int64               `json:"duration_ms"`
	ServerSeedHash string              `json:"server_seed_hash,omitempty"`
	Rounds         []match.RoundResult `json:"rounds,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	SettledAt      *time.Time          `json:"settled_at,omitempty"`
}

// VerifyResponse reveals a settled match's seeds so the stored hash can be
// recomputed by anyone.
type VerifyResponse struct {
	MatchID        string `json:"match_id"`
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed1    string `json:"client_seed_1"`
	ClientSeed2    string `json:"client_seed_2"`
	Valid          bool   `json:"valid"`
}
