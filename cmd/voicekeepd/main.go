// Command voicekeepd is the voicekeep daemon: the Pipeline Orchestrator,
// Watch-Folder Ingester, and operator HTTP API running in one process.
// Run this binary directly for container/systemd deployments; to run the
// same daemon as an OS service, `voicekeep install` installs the voicekeep
// binary itself in its hidden service-run mode.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"voicekeep/internal/cli"
	"voicekeep/internal/config"
	"voicekeep/pkg/logger"
)

// @title Voicekeep Operator API
// @version 1.0
// @description Operator action surface for the voicekeep personal voice-intelligence pipeline.
// @license.name MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	log.Println("🎙️  voicekeepd starting up...")

	log.Println("📋 loading configuration...")
	cfg := config.Load()

	log.Println("📝 initializing structured logging...")
	logger.Init(cfg.LogLevel)
	logger.Info("voicekeepd starting", "audio_root", cfg.AudioRoot, "curator_root", cfg.CuratorRoot, "watch_dir", cfg.WatchDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("🌐 operator API will listen on %s\n", cfg.HTTPAddr)
	log.Println("💡 visit /swagger/index.html for API documentation once generated")
	log.Println("🛑 press Ctrl+C to stop")

	if err := cli.RunDaemon(ctx, cfg); err != nil {
		log.Fatalf("voicekeepd: %v", err)
	}
	log.Println("voicekeepd stopped")
}
