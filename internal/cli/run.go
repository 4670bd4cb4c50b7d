package cli

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"voicekeep/internal/api"
	"voicekeep/internal/config"
	"voicekeep/internal/curator"
	"voicekeep/internal/embedclient"
	"voicekeep/internal/index"
	"voicekeep/internal/manifest"
	"voicekeep/internal/orchestrator"
	"voicekeep/internal/speaker"
	"voicekeep/internal/watchfolder"
	"voicekeep/pkg/logger"
)

// components is every long-lived object the daemon wires together.
// Shared by `voicekeep serve` (foreground) and the kardianos-managed
// service program (background), so both run identical service graphs.
type components struct {
	orchestrator *orchestrator.Orchestrator
	ingester     *watchfolder.Ingester
	speaker      *speaker.Service
	handler      *api.Handler
}

// buildComponents constructs every service object from cfg, rebuilding
// the transcript index on every call (spec §6, EXPANSION C9).
func buildComponents(cfg *config.Config) (*components, error) {
	layout := cfg.Layout()

	m := manifest.New(layout.ManifestPath())
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	writer := curator.NewWriter(layout)
	embed := embedclient.NewHTTPClient(cfg.EmbedServiceURL, cfg.TranscodeTimeout())

	ix, err := index.Open(cfg.IndexDBPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := ix.Rebuild(layout); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	orch := orchestrator.New(layout, m, writer, ix, cfg.PollInterval(), cfg.MinPlaybackDuration(), cfg.OrphanAge())

	ingCfg := watchfolder.Config{
		WatchDir:             cfg.WatchDir,
		PollInterval:         cfg.WatchPollInterval(),
		StableChecks:         cfg.StableChecks,
		StableInterval:       cfg.StableInterval(),
		MaxStabilityAttempts: cfg.MaxStabilityAttempts,
		TranscodeTimeout:     cfg.TranscodeTimeout(),
	}
	ing, err := watchfolder.New(ingCfg, layout)
	if err != nil {
		return nil, fmt.Errorf("build ingester: %w", err)
	}

	svc := speaker.New(layout, m, writer, embed)
	handler := api.NewHandler(layout, m, ix, writer, svc, ing)

	return &components{orchestrator: orch, ingester: ing, speaker: svc, handler: handler}, nil
}

// buildSpeakerService wires just enough to run one Speaker Identity
// Service operation in-process, for operator commands invoked without
// --server-url.
func buildSpeakerService(cfg *config.Config) (*speaker.Service, error) {
	layout := cfg.Layout()

	m := manifest.New(layout.ManifestPath())
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	writer := curator.NewWriter(layout)
	embed := embedclient.NewHTTPClient(cfg.EmbedServiceURL, cfg.TranscodeTimeout())
	return speaker.New(layout, m, writer, embed), nil
}

// buildIngester wires just enough to run one Watch-Folder Ingester
// control operation (pause/resume) in-process.
func buildIngester(cfg *config.Config) (*watchfolder.Ingester, error) {
	ingCfg := watchfolder.Config{
		WatchDir:             cfg.WatchDir,
		PollInterval:         cfg.WatchPollInterval(),
		StableChecks:         cfg.StableChecks,
		StableInterval:       cfg.StableInterval(),
		MaxStabilityAttempts: cfg.MaxStabilityAttempts,
		TranscodeTimeout:     cfg.TranscodeTimeout(),
	}
	return watchfolder.New(ingCfg, cfg.Layout())
}

// RunDaemon runs the Orchestrator loop, the Watch-Folder Ingester loop,
// and the HTTP operator API concurrently until ctx is canceled. The
// first failure cancels the others (errgroup), mirroring the teacher's
// graceful-shutdown-on-signal pattern generalized to three components
// instead of one HTTP server.
func RunDaemon(ctx context.Context, cfg *config.Config) error {
	logger.Startup("components", "wiring manifest, index, writer, orchestrator, ingester, speaker service")
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	router := api.SetupRoutes(c.handler)
	srv := newHTTPServer(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Startup("orchestrator", "starting poll loop", "interval", cfg.PollInterval())
		return c.orchestrator.Run(gctx)
	})
	g.Go(func() error {
		logger.Startup("watchfolder", "starting poll loop", "dir", cfg.WatchDir, "interval", cfg.WatchPollInterval())
		return c.ingester.Run(gctx)
	})
	g.Go(func() error {
		logger.Startup("api", "listening", "addr", cfg.HTTPAddr)
		return runHTTPServer(gctx, srv)
	})
	g.Go(func() error {
		return watchInboxFsnotify(gctx, cfg.WatchDir, c.ingester)
	})

	err = g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
