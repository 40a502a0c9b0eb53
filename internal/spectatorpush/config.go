package spectatorpush

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"agent-arena/internal/config"
)

func ConfigFromServer(cfg config.ServerConfig) (Config, error) {
	out := Config{
		Enabled:             cfg.SpectatorPushEnabled,
		ConfigPath:          strings.TrimSpace(cfg.SpectatorPushConfigPath),
		ConfigReload:        cfg.SpectatorPushConfigReload,
		Workers:             cfg.SpectatorPushWorkers,
		RetryMax:            max(cfg.SpectatorPushRetryMax, 0),
		RetryBase:           cfg.SpectatorPushRetryBase,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      5 * time.Second,
		DispatchBuffer:      1024,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 500 * time.Millisecond
	}
	if out.ConfigReload <= 0 {
		out.ConfigReload = time.Second
	}

	raw, err := loadTargetsJSON(cfg)
	if err != nil {
		return Config{}, err
	}
	if raw == "" {
		return out, nil
	}
	targets, err := parseTargetsJSON(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

// loadTargetsJSON prefers the config file over the inline env value.
func loadTargetsJSON(cfg config.ServerConfig) (string, error) {
	if path := strings.TrimSpace(cfg.SpectatorPushConfigPath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read spectator push config path %q: %w", path, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.TrimSpace(cfg.SpectatorPushConfigJSON), nil
}

// parseTargetsJSON drops disabled targets, targets without an endpoint and
// targets with an unknown or unfilled scope.
func parseTargetsJSON(raw string) ([]PushTarget, error) {
	var targets []PushTarget
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("parse spectator push targets: %w", err)
	}
	out := make([]PushTarget, 0, len(targets))
	for _, t := range targets {
		t.Platform = strings.ToLower(strings.TrimSpace(t.Platform))
		t.Endpoint = strings.TrimSpace(t.Endpoint)
		t.ScopeType = strings.ToLower(strings.TrimSpace(t.ScopeType))
		t.ScopeValue = strings.TrimSpace(t.ScopeValue)
		if t.ScopeType == "" {
			t.ScopeType = ScopeAll
		}
		if !t.Enabled || t.Endpoint == "" {
			continue
		}
		switch t.ScopeType {
		case ScopeAll:
		case ScopeAgent, ScopeMatch:
			if t.ScopeValue == "" {
				continue
			}
		default:
			continue
		}
		for i := range t.EventAllowlist {
			t.EventAllowlist[i] = strings.ToLower(strings.TrimSpace(t.EventAllowlist[i]))
		}
		out = append(out, t)
	}
	return out, nil
}
