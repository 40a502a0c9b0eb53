package store

import "time"

const (
	SessionActive = "active"
	SessionClosed = "closed"

	EscrowLocked   = "locked"
	EscrowReleased = "released"
	EscrowRefunded = "refunded"

	QueueSearching = "searching"
	QueueFighting  = "fighting"

	MatchInProgress = "in_progress"
	MatchCompleted  = "completed"
)

// Session is an agent's funded playing session: the balance escrow is taken
// from and the stats settlement updates.
type Session struct {
	ID          string    `db:"id"`
	AgentID     string    `db:"agent_id"`
	Status      string    `db:"status"`
	Balance     int64     `db:"balance"`
	Strategy    string    `db:"strategy"`
	Rating      int       `db:"rating"`
	Wins        int       `db:"wins"`
	Losses      int       `db:"losses"`
	Draws       int       `db:"draws"`
	GamesPlayed int       `db:"games_played"`
	NetEarnings int64     `db:"net_earnings"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type EscrowRecord struct {
	ID         string     `db:"id"`
	AgentID    string     `db:"agent_id"`
	SessionID  string     `db:"session_id"`
	Amount     int64      `db:"amount"`
	Status     string     `db:"status"`
	MatchID    *string    `db:"match_id"`
	LockedAt   time.Time  `db:"locked_at"`
	ReleasedAt *time.Time `db:"released_at"`
}

type QueueEntry struct {
	ID            string    `db:"id"`
	AgentID       string    `db:"agent_id"`
	SessionID     string    `db:"session_id"`
	GameType      string    `db:"game_type"`
	StakeAmount   int64     `db:"stake_amount"`
	StakeRangeMin int64     `db:"stake_range_min"`
	StakeRangeMax int64     `db:"stake_range_max"`
	Strategy      string    `db:"strategy"`
	RatingAtJoin  int       `db:"rating_at_join"`
	Status        string    `db:"status"`
	MatchID       *string   `db:"match_id"`
	JoinedAt      time.Time `db:"joined_at"`
	ExpiresAt     time.Time `db:"expires_at"`
}

// Overlaps reports whether the stake ranges of e and o intersect.
func (e QueueEntry) Overlaps(o QueueEntry) bool {
	return o.StakeRangeMax >= e.StakeRangeMin && o.StakeRangeMin <= e.StakeRangeMax
}

type Match struct {
	ID               string     `db:"id"`
	Player1ID        string     `db:"player1_id"`
	Player2ID        string     `db:"player2_id"`
	Player1SessionID string     `db:"player1_session_id"`
	Player2SessionID string     `db:"player2_session_id"`
	Player1Strategy  string     `db:"player1_strategy"`
	Player2Strategy  string     `db:"player2_strategy"`
	GameType         string     `db:"game_type"`
	StakeAmount      int64      `db:"stake_amount"`
	BestOf           int        `db:"best_of"`
	Status           string     `db:"status"`
	WinnerID         *string    `db:"winner_id"`
	Rounds           string     `db:"rounds"`
	P1Score          int        `db:"p1_score"`
	P2Score          int        `db:"p2_score"`
	HouseFee         int64      `db:"house_fee"`
	DurationMs       int64      `db:"duration_ms"`
	RatingDelta1     int        `db:"rating_delta_1"`
	RatingDelta2     int        `db:"rating_delta_2"`
	ServerSeed       string     `db:"server_seed"`
	ServerSeedHash   string     `db:"server_seed_hash"`
	ClientSeed1      string     `db:"client_seed_1"`
	ClientSeed2      string     `db:"client_seed_2"`
	CreatedAt        time.Time  `db:"created_at"`
	SettledAt        *time.Time `db:"settled_at"`
}
