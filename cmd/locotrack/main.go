package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/api"
	"github.com/railradar/locotrack/collector"
	"github.com/railradar/locotrack/config"
	"github.com/railradar/locotrack/fois"
	"github.com/railradar/locotrack/internal"
	"github.com/railradar/locotrack/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (defaults to ./config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	internal.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Upstream.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Upstream.Timezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}

	st, err := store.Open(cfg.Store.Path, cfg.Store.RetentionWindow())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open observation store")
	}
	log.Info().Str("path", cfg.Store.Path).Dur("retention", cfg.Store.RetentionWindow()).
		Msg("observation store open")

	client := fois.NewClient(cfg.Upstream)
	coll := collector.New(client, st, fois.NewParser(loc), cfg.Collector)
	go coll.Run(ctx)

	server := api.NewServer(cfg.Server, coll, st)
	server.Start()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("store close error")
	}
	log.Info().Msg("shutdown complete")
}
