// Package main provides the laughless game server entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/hmoon-dev/laughless/internal/analyzer"
	"github.com/hmoon-dev/laughless/internal/config"
	"github.com/hmoon-dev/laughless/internal/db"
	"github.com/hmoon-dev/laughless/internal/finalize"
	"github.com/hmoon-dev/laughless/internal/recommend"
	"github.com/hmoon-dev/laughless/internal/server"
	"github.com/hmoon-dev/laughless/internal/videosearch"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Event database path (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *debug || cfg.Logging.Level == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down server")
		cancel()
	}()

	store, err := db.NewStore(db.Config{
		Path:     cfg.Database.Path,
		MaxConns: cfg.Database.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event store")
	}
	defer store.Close()

	eventStore := db.NewEventStore(store)

	analyzerClient := analyzer.New(cfg.Analyzer.URL, cfg.Analyzer.Timeout)
	finalizer := finalize.New(eventStore, analyzerClient)

	searchClient := videosearch.NewBreakerClient(videosearch.New(videosearch.Config{
		BaseURL: cfg.Search.BaseURL,
		APIKey:  cfg.Search.APIKey,
		OrderBy: cfg.Search.OrderBy,
		Timeout: cfg.Search.Timeout,
	}))
	fanout := recommend.New(eventStore, searchClient, cfg.Search.MaxResults)

	svc := server.New(cfg, store, eventStore, finalizer, fanout)

	log.Info().Str("version", Version).Msg("laughless server starting")
	if err := svc.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
