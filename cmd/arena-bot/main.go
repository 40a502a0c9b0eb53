package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agent-arena/internal/config"
	"agent-arena/internal/logging"

	"github.com/rs/zerolog/log"
)

type client struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

type apiError struct {
	Status int
	Code   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Code)
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		adminKey: cfg.AdminAPIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		if cfg.AdminAPIKey == "" {
			log.Fatal().Msg("SESSION_ID or ADMIN_API_KEY is required")
		}
		sessionID, err = ensureSession(ctx, c, cfg)
		if err != nil {
			log.Fatal().Err(err).Str("agent_id", cfg.AgentID).Msg("session setup failed")
		}
	}

	played := 0
	for cfg.Matches <= 0 || played < cfg.Matches {
		matchID, err := playOnce(ctx, c, cfg, sessionID)
		if ctx.Err() != nil {
			_ = c.do(context.Background(), http.MethodDelete, "/api/pvp/queue?agent_id="+url.QueryEscape(cfg.AgentID), nil, nil)
			log.Info().Int("played", played).Msg("bot stopped")
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("match attempt failed")
			if !sleep(ctx, cfg.PollInterval) {
				return
			}
			continue
		}
		played++
		log.Info().Str("match_id", matchID).Int("played", played).Msg("match finished")
	}
	log.Info().Int("played", played).Msg("bot done")
}

// ensureSession reuses the agent's open session, so a restarted bot keeps its
// balance and rating, and creates one otherwise.
func ensureSession(ctx context.Context, c *client, cfg config.BotConfig) (string, error) {
	var sess struct {
		SessionID string `json:"session_id"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/sessions?agent_id="+url.QueryEscape(cfg.AgentID), nil, &sess)
	if err == nil {
		log.Info().Str("agent_id", cfg.AgentID).Str("session_id", sess.SessionID).Msg("session reused")
		return sess.SessionID, nil
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		return "", err
	}
	err = c.do(ctx, http.MethodPost, "/api/admin/sessions", map[string]any{
		"agent_id":        cfg.AgentID,
		"initial_balance": cfg.InitialFunds,
		"strategy":        cfg.Strategy,
	}, &sess)
	if err != nil {
		return "", err
	}
	log.Info().Str("agent_id", cfg.AgentID).Str("session_id", sess.SessionID).Msg("session created")
	return sess.SessionID, nil
}

// playOnce queues the bot, waits for an opponent and resolves the match.
func playOnce(ctx context.Context, c *client, cfg config.BotConfig, sessionID string) (string, error) {
	var joined struct {
		Status string `json:"status"`
		Match  *struct {
			MatchID string `json:"match_id"`
		} `json:"match"`
		Result *struct {
			WinnerID string `json:"winner_id"`
			IsDraw   bool   `json:"is_draw"`
		} `json:"result"`
	}
	err := c.do(ctx, http.MethodPost, "/api/pvp/queue", map[string]any{
		"agent_id":     cfg.AgentID,
		"session_id":   sessionID,
		"game_type":    cfg.GameType,
		"stake_amount": cfg.Stake,
		"strategy":     cfg.Strategy,
	}, &joined)
	if err != nil {
		return "", err
	}
	if joined.Result != nil && joined.Match != nil {
		return joined.Match.MatchID, nil
	}

	matchID := ""
	if joined.Match != nil {
		matchID = joined.Match.MatchID
	}
	for matchID == "" {
		if !sleep(ctx, cfg.PollInterval) {
			return "", ctx.Err()
		}
		var found struct {
			Matched bool   `json:"matched"`
			MatchID string `json:"match_id"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/pvp/match/find", map[string]any{"agent_id": cfg.AgentID}, &found); err != nil {
			return "", err
		}
		if found.Matched {
			matchID = found.MatchID
		}
	}

	var settled struct {
		Status   string `json:"status"`
		WinnerID string `json:"winner_id"`
		IsDraw   bool   `json:"is_draw"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/pvp/matches/"+matchID+"/resolve", nil, &settled); err != nil {
		return matchID, err
	}
	log.Info().
		Str("match_id", matchID).
		Str("status", settled.Status).
		Str("winner_id", settled.WinnerID).
		Bool("draw", settled.IsDraw).
		Msg("match resolved")
	return matchID, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminKey != "" && strings.HasPrefix(path, "/api/admin/") {
		req.Header.Set("X-Admin-Key", c.adminKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &apiError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
