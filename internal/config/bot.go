package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	BaseURL      string        `env:"ARENA_URL" envDefault:"http://localhost:8080"`
	AgentID      string        `env:"AGENT_ID" envDefault:"bot"`
	SessionID    string        `env:"SESSION_ID"`
	AdminAPIKey  string        `env:"ADMIN_API_KEY"`
	Strategy     string        `env:"BOT_STRATEGY" envDefault:"conservative"`
	GameType     string        `env:"GAME_TYPE" envDefault:"RPS"`
	Stake        int64         `env:"BOT_STAKE" envDefault:"100"`
	InitialFunds int64         `env:"BOT_INITIAL_FUNDS" envDefault:"1000"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	Matches      int           `env:"BOT_MATCHES" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
