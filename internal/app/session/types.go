package session

import (
	"time"

	"agent-arena/internal/store"
)

type CreateInput struct {
	AgentID        string `json:"agent_id"`
	InitialBalance int64  `json:"initial_balance"`
	Strategy       string `json:"strategy"`
	// Rating defaults to the starting rating when zero.
	Rating int `json:"rating,omitempty"`
}

type TopupInput struct {
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
}

type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	AgentID     string    `json:"agent_id"`
	Status      string    `json:"status"`
	Balance     int64     `json:"balance"`
	Strategy    string    `json:"strategy"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	GamesPlayed int       `json:"games_played"`
	NetEarnings int64     `json:"net_earnings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EscrowResponse struct {
	AgentID string       `json:"agent_id"`
	Items   []EscrowItem `json:"items"`
}

type EscrowItem struct {
	EscrowID   string     `json:"escrow_id"`
	SessionID  string     `json:"session_id"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	MatchID    string     `json:"match_id,omitempty"`
	LockedAt   time.Time  `json:"locked_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

func toResponse(s *store.Session) *SessionResponse {
	return &SessionResponse{
		SessionID:   s.ID,
		AgentID:     s.AgentID,
		Status:      s.Status,
		Balance:     s.Balance,
		Strategy:    s.Strategy,
		Rating:      s.Rating,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Draws:       s.Draws,
		GamesPlayed: s.GamesPlayed,
		NetEarnings: s.NetEarnings,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
