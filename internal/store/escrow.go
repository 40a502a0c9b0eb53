package store

import (
	"context"
	"time"
)

const escrowColumns = `id, agent_id, session_id, amount, status, match_id, locked_at, released_at`

func (q *Queries) InsertEscrow(ctx context.Context, e EscrowRecord) error {
	_, err := q.exec(ctx, `INSERT INTO escrow_records (`+escrowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.SessionID, e.Amount, e.Status, e.MatchID, ts(e.LockedAt), tsPtr(e.ReleasedAt))
	return err
}

func (q *Queries) GetLockedEscrow(ctx context.Context, agentID string) (*EscrowRecord, error) {
	var e EscrowRecord
	if err := q.get(ctx, &e, `SELECT `+escrowColumns+` FROM escrow_records
		WHERE agent_id = ? AND status = 'locked'`, agentID); err != nil {
		return nil, err
	}
	return &e, nil
}

// CloseLockedEscrow moves the agent's locked record, matched or not, to status.
func (q *Queries) CloseLockedEscrow(ctx context.Context, agentID, status string, now time.Time) (int64, error) {
	return q.exec(ctx, `UPDATE escrow_records SET status = ?, released_at = ?
		WHERE agent_id = ? AND status = 'locked'`, status, ts(now), agentID)
}

// CloseUnmatchedEscrow moves the agent's locked record to status unless it is
// already attached to a match, in which case only settlement may close it.
func (q *Queries) CloseUnmatchedEscrow(ctx context.Context, agentID, status string, now time.Time) (int64, error) {
	return q.exec(ctx, `UPDATE escrow_records SET status = ?, released_at = ?
		WHERE agent_id = ? AND status = 'locked' AND match_id IS NULL`, status, ts(now), agentID)
}

// AttachEscrowToMatch binds the agent's locked record to a match and sets it
// to the agreed stake.
func (q *Queries) AttachEscrowToMatch(ctx context.Context, agentID, matchID string, amount int64) (int64, error) {
	return q.exec(ctx, `UPDATE escrow_records SET match_id = ?, amount = ?
		WHERE agent_id = ? AND status = 'locked' AND match_id IS NULL`, matchID, amount, agentID)
}

func (q *Queries) ReleaseMatchEscrow(ctx context.Context, matchID string, now time.Time) (int64, error) {
	return q.exec(ctx, `UPDATE escrow_records SET status = 'released', released_at = ?
		WHERE match_id = ? AND status = 'locked'`, ts(now), matchID)
}

func (q *Queries) ListEscrowByAgent(ctx context.Context, agentID string, limit int) ([]EscrowRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []EscrowRecord{}
	err := q.selectAll(ctx, &out, `SELECT `+escrowColumns+` FROM escrow_records
		WHERE agent_id = ? ORDER BY locked_at DESC, id DESC LIMIT ?`, agentID, limit)
	return out, err
}

func (q *Queries) ListEscrowByMatch(ctx context.Context, matchID string) ([]EscrowRecord, error) {
	out := []EscrowRecord{}
	err := q.selectAll(ctx, &out, `SELECT `+escrowColumns+` FROM escrow_records
		WHERE match_id = ? ORDER BY agent_id`, matchID)
	return out, err
}

func (q *Queries) CountLockedEscrow(ctx context.Context, agentID string) (int, error) {
	var n int
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM escrow_records WHERE agent_id = ? AND status = 'locked'`, agentID)
	return n, err
}

// ListOrphanedEscrow finds locked records with no match and no searching
// queue entry, left behind when a caller died between Lock and the queue
// insert.
func (q *Queries) ListOrphanedEscrow(ctx context.Context, lockedBefore time.Time, limit int) ([]EscrowRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []EscrowRecord{}
	err := q.selectAll(ctx, &out, `SELECT `+escrowColumns+` FROM escrow_records e
		WHERE e.status = 'locked' AND e.match_id IS NULL AND e.locked_at < ?
		AND NOT EXISTS (
			SELECT 1 FROM queue_entries qe WHERE qe.agent_id = e.agent_id AND qe.status = 'searching'
		)
		ORDER BY e.locked_at LIMIT ?`, ts(lockedBefore), limit)
	return out, err
}
