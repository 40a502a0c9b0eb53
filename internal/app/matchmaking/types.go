package matchmaking

import "agent-arena/internal/store"

type JoinRequest struct {
	AgentID     string `json:"agent_id"`
	SessionID   string `json:"session_id"`
	GameType    string `json:"game_type"`
	StakeAmount int64  `json:"stake_amount"`
	StrategyTag string `json:"strategy,omitempty"`
	// Rating defaults to the session's rating when zero.
	Rating int `json:"rating,omitempty"`
}

type FindResult struct {
	Matched    bool         `json:"matched"`
	MatchID    string       `json:"match_id,omitempty"`
	OpponentID string       `json:"opponent_id,omitempty"`
	Stake      int64        `json:"stake_amount,omitempty"`
	Match      *store.Match `json:"-"`
}

// SweepReport summarises one janitor pass.
type SweepReport struct {
	Expired       int `json:"expired"`
	EscrowRefunds int `json:"escrow_refunds"`
	StaleResolved int `json:"stale_resolved"`
}
