package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	DatabaseDSN string `env:"DATABASE_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"arena.pvp.events"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"agent-arena"`

	MCPEnabled bool `env:"MCP_ENABLED" envDefault:"true"`

	SpectatorPushEnabled      bool          `env:"SPECTATOR_PUSH_ENABLED" envDefault:"false"`
	SpectatorPushConfigPath   string        `env:"SPECTATOR_PUSH_CONFIG_PATH"`
	SpectatorPushConfigJSON   string        `env:"SPECTATOR_PUSH_TARGETS_JSON"`
	SpectatorPushConfigReload time.Duration `env:"SPECTATOR_PUSH_CONFIG_RELOAD" envDefault:"1s"`
	SpectatorPushWorkers      int           `env:"SPECTATOR_PUSH_WORKERS" envDefault:"4"`
	SpectatorPushRetryMax     int           `env:"SPECTATOR_PUSH_RETRY_MAX" envDefault:"3"`
	SpectatorPushRetryBase    time.Duration `env:"SPECTATOR_PUSH_RETRY_BASE" envDefault:"500ms"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
