package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// ArenaConfig tunes matchmaking, settlement and the background janitor.
type ArenaConfig struct {
	RatingKFactor int             `env:"RATING_K_FACTOR" envDefault:"32"`
	RatingFloor   int             `env:"RATING_FLOOR" envDefault:"100"`
	HouseFeeRate  decimal.Decimal `env:"HOUSE_FEE_RATE" envDefault:"0.05"`
	BestOf        int             `env:"MATCH_BEST_OF" envDefault:"3"`

	QueueTTL        time.Duration `env:"QUEUE_TTL" envDefault:"5m"`
	AutoResolve     bool          `env:"AUTO_RESOLVE" envDefault:"true"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"30s"`
	StaleMatchAfter time.Duration `env:"STALE_MATCH_AFTER" envDefault:"2m"`
	OrphanGrace     time.Duration `env:"ESCROW_ORPHAN_GRACE" envDefault:"1m"`
}

func LoadArena() (ArenaConfig, error) {
	var cfg ArenaConfig
	err := env.Parse(&cfg)
	return cfg, err
}
