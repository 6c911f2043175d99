// Package main provides a headless challenge runner: it plays one session
// against a running laughless server and classifier, sourcing frames from a
// directory of JPEG files instead of a webcam.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/internal/challenge"
	"github.com/hmoon-dev/laughless/internal/classifier"
	"github.com/hmoon-dev/laughless/internal/config"
	"github.com/hmoon-dev/laughless/pkg/models"
)

func main() {
	nickname := flag.String("nickname", "", "Player nickname (required)")
	framesDir := flag.String("frames", "", "Directory of JPEG frames to cycle through (required)")
	serverURL := flag.String("server", "http://localhost:5001", "Game server base URL")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *nickname == "" {
		log.Fatal().Msg("--nickname is required")
	}
	if *framesDir == "" {
		log.Fatal().Msg("--frames is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}

	source, err := newDirSource(*framesDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open frames directory")
	}

	cls := classifier.New(cfg.Classifier.URL, cfg.Classifier.Timeout)
	api := challenge.NewAPIClient(*serverURL, cfg.Server.WriteTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Interrupted")
		cancel()
	}()

	// No uploader: headless runs keep no captures, events carry no refs.
	ctrl := challenge.NewController(challenge.Config{
		Duration:       cfg.Challenge.Duration,
		SampleInterval: cfg.Challenge.SampleInterval,
		Cooldown:       cfg.Challenge.Cooldown,
	}, source, cls, nil, api)

	if err := ctrl.SetNickname(*nickname); err != nil {
		log.Fatal().Err(err).Msg("Failed to set nickname")
	}
	if err := ctrl.Start(ctx, api); err != nil {
		log.Fatal().Err(err).Msg("Failed to start challenge")
	}

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		return
	}

	rep, err := api.Report(ctx, ctrl.SessionID())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch report")
	}
	printReport(ctrl.State(), rep)

	// Stream recommendation sections until interrupted; the server has no
	// "done" signal, stability is the reader's call.
	poller := challenge.NewPoller(api, ctrl.SessionID(), cfg.Challenge.PollInterval)
	poller.Run(ctx, printSections)
}

func printReport(outcome challenge.State, rep *models.Report) {
	fmt.Printf("\n=== %s: %s ===\n", rep.Nickname, outcome)
	fmt.Printf("laughs: %d  dominant: %s\n", rep.LaughCount, rep.DominantLabel)
	for _, s := range rep.Summaries {
		fmt.Printf("  - %s\n", s)
	}
	if len(rep.Tags) > 0 {
		fmt.Printf("tags: %v\n", rep.Tags)
	}
}

func printSections(sections []models.RecommendationSection) {
	for _, sec := range sections {
		fmt.Printf("\n[%d] %s\n", sec.EventIndex, sec.Query)
		for i, v := range sec.Videos {
			fmt.Printf("  %d. %s (%s)\n     %s\n", i+1, v.Title, v.Channel, v.URL)
		}
	}
}

// dirSource cycles over the JPEG files of a directory.
type dirSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

func newDirSource(dir string) (*dirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".jpg" || ext == ".jpeg" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no JPEG files in %s", dir)
	}
	sort.Strings(paths)

	return &dirSource{paths: paths}, nil
}

// Capture returns the next frame in file order, wrapping around.
func (s *dirSource) Capture(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	path := s.paths[s.next]
	s.next = (s.next + 1) % len(s.paths)
	s.mu.Unlock()

	return os.ReadFile(path)
}
