package spectatorpush

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"agent-arena/internal/config"
)

func TestConfigFromServerFiltersTargets(t *testing.T) {
	scfg := config.ServerConfig{
		SpectatorPushEnabled:   true,
		SpectatorPushWorkers:   2,
		SpectatorPushRetryMax:  3,
		SpectatorPushRetryBase: 200 * time.Millisecond,
		SpectatorPushConfigJSON: `[
		  {"platform":"Discord","endpoint":"https://a","enabled":true},
		  {"platform":"feishu","endpoint":"https://b","scope_type":"agent","scope_value":"x","enabled":true},
		  {"platform":"feishu","endpoint":"","scope_type":"all","enabled":true},
		  {"platform":"discord","endpoint":"https://c","scope_type":"match","enabled":true},
		  {"platform":"discord","endpoint":"https://d","scope_type":"room","scope_value":"mid","enabled":true},
		  {"platform":"discord","endpoint":"https://e","enabled":false}
		]`,
	}
	cfg, err := ConfigFromServer(scfg)
	if err != nil {
		t.Fatalf("config parse failed: %v", err)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 filtered targets, got %+v", cfg.Targets)
	}
	if cfg.Targets[0].Platform != "discord" || cfg.Targets[0].ScopeType != ScopeAll {
		t.Fatalf("first target not normalised: %+v", cfg.Targets[0])
	}
	if cfg.Targets[1].ScopeType != ScopeAgent || cfg.Targets[1].ScopeValue != "x" {
		t.Fatalf("unexpected second target: %+v", cfg.Targets[1])
	}
	if cfg.Workers != 2 || cfg.RetryBase != 200*time.Millisecond {
		t.Fatalf("unexpected tuning: %+v", cfg)
	}
}

func TestConfigFromServerDisabledSkipsTargets(t *testing.T) {
	cfg, err := ConfigFromServer(config.ServerConfig{SpectatorPushConfigJSON: "not json"})
	if err != nil {
		t.Fatalf("disabled push should not parse targets: %v", err)
	}
	if cfg.Enabled || len(cfg.Targets) != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigFromServerUsesConfigPathFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	fileJSON := `[{"platform":"discord","endpoint":"https://from-file","scope_type":"all","enabled":true}]`
	if err := os.WriteFile(path, []byte(fileJSON), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	cfg, err := ConfigFromServer(config.ServerConfig{
		SpectatorPushEnabled:    true,
		SpectatorPushConfigPath: path,
		SpectatorPushConfigJSON: `[{"platform":"discord","endpoint":"https://from-env","enabled":true}]`,
	})
	if err != nil {
		t.Fatalf("config parse failed: %v", err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Endpoint != "https://from-file" {
		t.Fatalf("expected endpoint from file, got %+v", cfg.Targets)
	}
}

func TestConfigFromServerErrors(t *testing.T) {
	if _, err := ConfigFromServer(config.ServerConfig{
		SpectatorPushEnabled:    true,
		SpectatorPushConfigPath: filepath.Join(t.TempDir(), "missing.json"),
	}); err == nil {
		t.Fatal("expected read error for missing config path")
	}
	if _, err := ConfigFromServer(config.ServerConfig{
		SpectatorPushEnabled:    true,
		SpectatorPushConfigJSON: "{",
	}); err == nil {
		t.Fatal("expected parse error")
	}
}
