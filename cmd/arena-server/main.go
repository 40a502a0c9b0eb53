package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-arena/internal/app"
	"agent-arena/internal/config"
	"agent-arena/internal/events"
	"agent-arena/internal/logging"
	"agent-arena/internal/spectatorpush"
	"agent-arena/internal/store"
	"agent-arena/internal/telemetry"
	httptransport "agent-arena/internal/transport/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg, arenaCfg := appCfg.Server, appCfg.Arena

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{Publisher: events.LogPublisher{}}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName, true)
		if err != nil {
			log.Fatal().Err(err).Msg("telemetry init failed")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}
	metrics, err := telemetry.NewMetrics(telemetry.Meter())
	if err != nil {
		log.Fatal().Err(err).Msg("metrics init failed")
	}
	opts.Metrics = metrics

	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, events logged only")
		} else {
			opts.Publisher = events.Multi{events.LogPublisher{}, events.NewRedisPublisher(rdb, cfg.RedisChannel)}
		}
	}

	svc := app.NewServices(st, arenaCfg, opts)
	r := httptransport.NewRouter(svc, cfg)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	pushCfg, err := spectatorpush.ConfigFromServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("spectator push config failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	svc.StartJanitor(gctx)
	if err := spectatorpush.NewManager(pushCfg).Start(gctx, svc.Feed); err != nil {
		log.Fatal().Err(err).Msg("spectator push start failed")
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}
