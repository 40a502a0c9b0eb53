package store

import (
	"context"
	"time"
)

const sessionColumns = `id, agent_id, status, balance, strategy, rating, wins, losses, draws,
	games_played, net_earnings, created_at, updated_at`

func (q *Queries) CreateSession(ctx context.Context, s Session) error {
	_, err := q.exec(ctx, `INSERT INTO agent_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AgentID, s.Status, s.Balance, s.Strategy, s.Rating, s.Wins, s.Losses, s.Draws,
		s.GamesPlayed, s.NetEarnings, ts(s.CreatedAt), ts(s.UpdatedAt))
	return err
}

func (q *Queries) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := q.get(ctx, &s, `SELECT `+sessionColumns+` FROM agent_sessions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionForUpdate locks the session row for the rest of the transaction.
func (q *Queries) GetSessionForUpdate(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := q.get(ctx, &s, `SELECT `+sessionColumns+` FROM agent_sessions WHERE id = ?`+q.forUpdate(), id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) GetActiveSessionByAgent(ctx context.Context, agentID string) (*Session, error) {
	var s Session
	if err := q.get(ctx, &s, `SELECT `+sessionColumns+` FROM agent_sessions
		WHERE agent_id = ? AND status = 'active'`, agentID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) TopupSession(ctx context.Context, id string, amount int64, now time.Time) error {
	rows, err := q.exec(ctx, `UPDATE agent_sessions SET balance = balance + ?, updated_at = ?
		WHERE id = ? AND status = 'active'`, amount, ts(now), id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) CloseSession(ctx context.Context, id string, now time.Time) error {
	rows, err := q.exec(ctx, `UPDATE agent_sessions SET status = 'closed', updated_at = ?
		WHERE id = ? AND status = 'active'`, ts(now), id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SessionOutcome is the settlement effect on one session. Rating is the new
// absolute rating, already floored by the caller.
type SessionOutcome struct {
	SessionID    string
	BalanceDelta int64
	Rating       int
	Win          bool
	Loss         bool
	Draw         bool
}

func (q *Queries) ApplySessionOutcome(ctx context.Context, o SessionOutcome, now time.Time) error {
	rows, err := q.exec(ctx, `UPDATE agent_sessions SET
			balance = balance + ?,
			rating = ?,
			wins = wins + ?,
			losses = losses + ?,
			draws = draws + ?,
			games_played = games_played + 1,
			net_earnings = net_earnings + ?,
			updated_at = ?
		WHERE id = ?`,
		o.BalanceDelta, o.Rating, b2i(o.Win), b2i(o.Loss), b2i(o.Draw), o.BalanceDelta, ts(now), o.SessionID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLeaderboard returns sessions that have played at least one game, best
// rating first.
func (q *Queries) ListLeaderboard(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []Session{}
	err := q.selectAll(ctx, &out, `SELECT `+sessionColumns+` FROM agent_sessions
		WHERE games_played > 0
		ORDER BY rating DESC, wins DESC, created_at ASC, id ASC
		LIMIT ?`, limit)
	return out, err
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}
