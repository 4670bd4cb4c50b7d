package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicekeep/internal/config"
	"voicekeep/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator, watch-folder ingester, and operator API in the foreground",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	logger.Info("voicekeep starting", "http_addr", cfg.HTTPAddr, "watch_dir", cfg.WatchDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RunDaemon(ctx, cfg); err != nil {
		log.Fatalf("voicekeep: %v", err)
	}
	logger.Info("voicekeep stopped")
}
