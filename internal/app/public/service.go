package public

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"agent-arena/internal/match"
	"agent-arena/internal/rps"
	"agent-arena/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) GetQueue(ctx context.Context, gameType string) (*QueueResponse, error) {
	gameType = strings.TrimSpace(gameType)
	entries, err := s.store.ListQueue(ctx, gameType, time.Now())
	if err != nil {
		return nil, err
	}
	out := make([]QueueItem, 0, len(entries))
	for _, e := range entries {
		item := QueueItem{
			AgentID:       e.AgentID,
			GameType:      e.GameType,
			StakeAmount:   e.StakeAmount,
			StakeRangeMin: e.StakeRangeMin,
			StakeRangeMax: e.StakeRangeMax,
			Strategy:      e.Strategy,
			Rating:        e.RatingAtJoin,
			Status:        e.Status,
			JoinedAt:      e.JoinedAt,
			ExpiresAt:     e.ExpiresAt,
		}
		if e.MatchID != nil {
			item.MatchID = *e.MatchID
		}
		out = append(out, item)
	}
	return &QueueResponse{GameType: gameType, Items: out}, nil
}

func (s *Service) GetLeaderboard(ctx context.Context, limit int) (*LeaderboardResponse, error) {
	limit = ClampLimit(limit)
	rows, err := s.store.ListLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardItem, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardItem{
			Rank:        i + 1,
			AgentID:     r.AgentID,
			Rating:      r.Rating,
			Wins:        r.Wins,
			Losses:      r.Losses,
			Draws:       r.Draws,
			GamesPlayed: r.GamesPlayed,
			WinRate:     winRate(r.Wins, r.GamesPlayed),
			NetEarnings: r.NetEarnings,
		})
	}
	return &LeaderboardResponse{Items: out, Limit: limit}, nil
}

func (s *Service) GetRecentMatches(ctx context.Context, limit int) (*MatchesResponse, error) {
	limit = ClampLimit(limit)
	rows, err := s.store.ListRecentMatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MatchItem, 0, len(rows))
	for i := range rows {
		out = append(out, toMatchItem(&rows[i], false))
	}
	return &MatchesResponse{Items: out, Limit: limit}, nil
}

// GetMatch returns one match with its rounds. The server seed stays hidden
// here; VerifyMatch reveals it once the match is settled.
func (s *Service) GetMatch(ctx context.Context, matchID string) (*MatchItem, error) {
	m, err := s.lookup(ctx, matchID)
	if err != nil {
		return nil, err
	}
	item := toMatchItem(m, true)
	return &item, nil
}

func (s *Service) VerifyMatch(ctx context.Context, matchID string) (*VerifyResponse, error) {
	m, err := s.lookup(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MatchCompleted {
		return nil, ErrMatchNotFound
	}
	return &VerifyResponse{
		MatchID:        m.ID,
		ServerSeed:     m.ServerSeed,
		ServerSeedHash: m.ServerSeedHash,
		ClientSeed1:    m.ClientSeed1,
		ClientSeed2:    m.ClientSeed2,
		Valid:          rps.VerifyCommitment(m.ServerSeed, m.ServerSeedHash),
	}, nil
}

func (s *Service) lookup(ctx context.Context, matchID string) (*store.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, ErrInvalidRequest
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	return m, err
}

// ClampLimit maps a requested page size into 1..100, defaulting to 20.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func winRate(wins, played int) float64 {
	if played == 0 {
		return 0
	}
	return float64(wins) / float64(played)
}

func toMatchItem(m *store.Match, withRounds bool) MatchItem {
	item := MatchItem{
		MatchID:        m.ID,
		GameType:       m.GameType,
		Player1ID:      m.Player1ID,
		Player2ID:      m.Player2ID,
		Status:         m.Status,
		StakeAmount:    m.StakeAmount,
		BestOf:         m.BestOf,
		IsDraw:         m.Status == store.MatchCompleted && m.WinnerID == nil,
		P1Score:        m.P1Score,
		P2Score:        m.P2Score,
		HouseFee:       m.HouseFee,
		RatingDelta1:   m.RatingDelta1,
		RatingDelta2:   m.RatingDelta2,
		DurationMs:     m.DurationMs,
		ServerSeedHash: m.ServerSeedHash,
		CreatedAt:      m.CreatedAt,
		SettledAt:      m.SettledAt,
	}
	if m.WinnerID != nil {
		item.WinnerID = *m.WinnerID
	}
	if withRounds && m.Rounds != "" {
		var rounds []match.RoundResult
		if err := json.Unmarshal([]byte(m.Rounds), &rounds); err == nil {
			item.Rounds = rounds
		}
	}
	return item
}
