package store

import (
	"context"
	"time"
)

const matchColumns = `id, player1_id, player2_id, player1_session_id, player2_session_id,
	player1_strategy, player2_strategy, game_type,
	stake_amount, best_of, status, winner_id, rounds, p1_score, p2_score, house_fee, duration_ms,
	rating_delta_1, rating_delta_2, server_seed, server_seed_hash, client_seed_1, client_seed_2,
	created_at, settled_at`

func (q *Queries) InsertMatch(ctx context.Context, m Match) error {
	if m.Rounds == "" {
		m.Rounds = "[]"
	}
	_, err := q.exec(ctx, `INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Player1ID, m.Player2ID, m.Player1SessionID, m.Player2SessionID,
		m.Player1Strategy, m.Player2Strategy, m.GameType,
		m.StakeAmount, m.BestOf, m.Status, m.WinnerID, m.Rounds, m.P1Score, m.P2Score, m.HouseFee, m.DurationMs,
		m.RatingDelta1, m.RatingDelta2, m.ServerSeed, m.ServerSeedHash, m.ClientSeed1, m.ClientSeed2,
		ts(m.CreatedAt), tsPtr(m.SettledAt))
	return err
}

func (q *Queries) GetMatch(ctx context.Context, id string) (*Match, error) {
	var m Match
	if err := q.get(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// CompleteMatch writes the outcome only if the match is still in progress.
// Zero rows affected means another caller already settled it.
func (q *Queries) CompleteMatch(ctx context.Context, m Match, settledAt time.Time) (int64, error) {
	return q.exec(ctx, `UPDATE matches SET
			status = 'completed',
			winner_id = ?,
			rounds = ?,
			p1_score = ?,
			p2_score = ?,
			house_fee = ?,
			duration_ms = ?,
			rating_delta_1 = ?,
			rating_delta_2 = ?,
			server_seed = ?,
			server_seed_hash = ?,
			client_seed_1 = ?,
			client_seed_2 = ?,
			settled_at = ?
		WHERE id = ? AND status = 'in_progress'`,
		m.WinnerID, m.Rounds, m.P1Score, m.P2Score, m.HouseFee, m.DurationMs,
		m.RatingDelta1, m.RatingDelta2, m.ServerSeed, m.ServerSeedHash, m.ClientSeed1, m.ClientSeed2,
		ts(settledAt), m.ID)
}

func (q *Queries) ListRecentMatches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []Match{}
	err := q.selectAll(ctx, &out, `SELECT `+matchColumns+` FROM matches
		WHERE status = 'completed'
		ORDER BY settled_at DESC, id DESC LIMIT ?`, limit)
	return out, err
}

// ListStaleMatches returns in-progress matches created before the cutoff.
func (q *Queries) ListStaleMatches(ctx context.Context, createdBefore time.Time, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []Match{}
	err := q.selectAll(ctx, &out, `SELECT `+matchColumns+` FROM matches
		WHERE status = 'in_progress' AND created_at < ?
		ORDER BY created_at ASC LIMIT ?`, ts(createdBefore), limit)
	return out, err
}

func (q *Queries) CountMatchesByAgent(ctx context.Context, agentID string) (int, error) {
	var n int
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM matches WHERE player1_id = ? OR player2_id = ?`, agentID, agentID)
	return n, err
}
