package store

import (
	"context"
	"time"
)

const queueColumns = `id, agent_id, session_id, game_type, stake_amount, stake_range_min, stake_range_max,
	strategy, rating_at_join, status, match_id, joined_at, expires_at`

func (q *Queries) InsertQueueEntry(ctx context.Context, e QueueEntry) error {
	_, err := q.exec(ctx, `INSERT INTO queue_entries (`+queueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.SessionID, e.GameType, e.StakeAmount, e.StakeRangeMin, e.StakeRangeMax,
		e.Strategy, e.RatingAtJoin, e.Status, e.MatchID, ts(e.JoinedAt), ts(e.ExpiresAt))
	return err
}

func (q *Queries) GetSearchingEntry(ctx context.Context, agentID string) (*QueueEntry, error) {
	var e QueueEntry
	if err := q.get(ctx, &e, `SELECT `+queueColumns+` FROM queue_entries
		WHERE agent_id = ? AND status = 'searching'`, agentID); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetFightingEntry returns the agent's newest entry already paired into a
// match.
func (q *Queries) GetFightingEntry(ctx context.Context, agentID string) (*QueueEntry, error) {
	var e QueueEntry
	if err := q.get(ctx, &e, `SELECT `+queueColumns+` FROM queue_entries
		WHERE agent_id = ? AND status = 'fighting'
		ORDER BY joined_at DESC, id DESC LIMIT 1`, agentID); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListCandidates returns one page of unexpired searching entries compatible
// with self, oldest first, skipping the first offset of them.
func (q *Queries) ListCandidates(ctx context.Context, self QueueEntry, now time.Time, limit, offset int) ([]QueueEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	offset = max(offset, 0)
	out := []QueueEntry{}
	err := q.selectAll(ctx, &out, `SELECT `+queueColumns+` FROM queue_entries
		WHERE status = 'searching'
		AND game_type = ?
		AND agent_id <> ?
		AND stake_range_max >= ?
		AND stake_range_min <= ?
		AND expires_at > ?
		ORDER BY joined_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		self.GameType, self.AgentID, self.StakeRangeMin, self.StakeRangeMax, ts(now), limit, offset)
	return out, err
}

// LockQueueEntries re-reads the given entries under row locks, in id order so
// that concurrent pairings cannot deadlock on each other.
func (q *Queries) LockQueueEntries(ctx context.Context, ids ...string) ([]QueueEntry, error) {
	out := []QueueEntry{}
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	err := q.selectAll(ctx, &out, `SELECT `+queueColumns+` FROM queue_entries
		WHERE id IN (`+inClause(len(ids))+`) ORDER BY id`+q.forUpdate(), args...)
	return out, err
}

// MarkEntriesFighting moves searching entries into the match. Entries that
// are no longer searching are left alone and not counted.
func (q *Queries) MarkEntriesFighting(ctx context.Context, matchID string, ids ...string) (int64, error) {
	args := []any{matchID}
	for _, id := range ids {
		args = append(args, id)
	}
	return q.exec(ctx, `UPDATE queue_entries SET status = 'fighting', match_id = ?
		WHERE status = 'searching' AND id IN (`+inClause(len(ids))+`)`, args...)
}

func (q *Queries) DeleteSearchingEntry(ctx context.Context, agentID string) (int64, error) {
	return q.exec(ctx, `DELETE FROM queue_entries WHERE agent_id = ? AND status = 'searching'`, agentID)
}

func (q *Queries) DeleteQueueEntriesForMatch(ctx context.Context, matchID string) (int64, error) {
	return q.exec(ctx, `DELETE FROM queue_entries WHERE match_id = ?`, matchID)
}

func (q *Queries) ListExpiredEntries(ctx context.Context, now time.Time, limit int) ([]QueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []QueueEntry{}
	err := q.selectAll(ctx, &out, `SELECT `+queueColumns+` FROM queue_entries
		WHERE status = 'searching' AND expires_at <= ?
		ORDER BY expires_at ASC LIMIT ?`, ts(now), limit)
	return out, err
}

// ListQueue returns the entries still waiting for an opponent at now,
// optionally restricted to one game type. Paired and expired entries are left
// out.
func (q *Queries) ListQueue(ctx context.Context, gameType string, now time.Time) ([]QueueEntry, error) {
	out := []QueueEntry{}
	err := q.selectAll(ctx, &out, `SELECT `+queueColumns+` FROM queue_entries
		WHERE status = 'searching'
		AND expires_at > ?
		AND (? = '' OR game_type = ?)
		ORDER BY joined_at ASC, id ASC`, ts(now), gameType, gameType)
	return out, err
}
