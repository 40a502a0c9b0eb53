package matchmaking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StaleResolver settles a match left in progress. It must be idempotent.
type StaleResolver interface {
	ResolveStale(ctx context.Context, matchID string) error
}

type JanitorConfig struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	OrphanGrace time.Duration
}

// Sweep runs one janitor pass: expired queue entries, orphaned escrow, and
// matches that were paired but never settled.
func (s *Service) Sweep(ctx context.Context, cfg JanitorConfig, resolver StaleResolver) SweepReport {
	var rep SweepReport
	var err error
	if rep.Expired, err = s.CleanupExpired(ctx); err != nil {
		log.Warn().Err(err).Msg("janitor_cleanup_failed")
	}
	if rep.EscrowRefunds, err = s.ReconcileEscrow(ctx, cfg.OrphanGrace); err != nil {
		log.Warn().Err(err).Msg("janitor_reconcile_failed")
	}
	if resolver != nil && cfg.StaleAfter > 0 {
		rep.StaleResolved = s.resolveStale(ctx, cfg.StaleAfter, resolver)
	}
	return rep
}

func (s *Service) resolveStale(ctx context.Context, after time.Duration, resolver StaleResolver) int {
	stale, err := s.store.ListStaleMatches(ctx, s.now().Add(-after), sweepBatch)
	if err != nil {
		log.Warn().Err(err).Msg("janitor_stale_list_failed")
		return 0
	}
	resolved := 0
	for _, m := range stale {
		if err := resolver.ResolveStale(ctx, m.ID); err != nil {
			log.Warn().Err(err).Str("match_id", m.ID).Msg("janitor_stale_resolve_failed")
			continue
		}
		resolved++
	}
	return resolved
}

func (s *Service) StartJanitor(ctx context.Context, cfg JanitorConfig, resolver StaleResolver) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rep := s.Sweep(ctx, cfg, resolver)
				if rep != (SweepReport{}) {
					log.Info().
						Int("expired", rep.Expired).
						Int("escrow_refunds", rep.EscrowRefunds).
						Int("stale_resolved", rep.StaleResolved).
						Msg("janitor_sweep")
				}
			}
		}
	}()
}
