package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"voicekeep/internal/config"
	"voicekeep/pkg/logger"
)

var (
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install voicekeep as a background OS service",
		Run:   runInstall,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the voicekeep service",
		Run:   runStart,
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the voicekeep service",
		Run:   runStop,
	}

	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the voicekeep service",
		Run:   runUninstall,
	}

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Tail the service logs",
		Run:   runLogs,
	}
)

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(logsCmd)
}

// program adapts RunDaemon to the kardianos service.Program interface.
type program struct {
	cancel context.CancelFunc
}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) run() {
	if err := setupServiceLogging(); err != nil {
		log.Printf("failed to set up file logging: %v", err)
	}
	log.Println("voicekeep service starting...")

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if err := RunDaemon(ctx, cfg); err != nil {
		log.Printf("voicekeep service exited with error: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	log.Println("voicekeep service stopping...")
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func getServiceConfig() *service.Config {
	ex, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	return &service.Config{
		Name:        "voicekeep",
		DisplayName: "Voicekeep Pipeline",
		Description: "Runs the voicekeep orchestrator, watch-folder ingester, and operator API.",
		Executable:  ex,
		Arguments:   []string{"service-run"},
	}
}

// serviceRunCmd is the hidden command the OS service manager actually
// executes; it blocks in service.Service.Run() and dispatches
// program.Start/Stop on the manager's behalf.
var serviceRunCmd = &cobra.Command{
	Use:    "service-run",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := setupServiceLogging(); err != nil {
			log.Printf("failed to set up file logging: %v", err)
		}

		prg := &program{}
		s, err := service.New(prg, getServiceConfig())
		if err != nil {
			log.Fatalf("failed to create service: %v", err)
		}

		svcLogger, err := s.Logger(nil)
		if err != nil {
			log.Printf("failed to get system logger: %v", err)
		} else {
			_ = svcLogger.Info("voicekeep service starting...")
		}

		if err := s.Run(); err != nil {
			if svcLogger != nil {
				_ = svcLogger.Error(err)
			}
			log.Fatalf("service failed to run: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serviceRunCmd)
}

func runInstall(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Install(); err != nil {
		log.Fatalf("failed to install service: %v", err)
	}
	fmt.Println("voicekeep service installed.")
}

func runStart(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Start(); err != nil {
		log.Fatalf("failed to start service: %v", err)
	}
	fmt.Println("voicekeep service started.")
}

func runStop(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		log.Fatalf("failed to stop service: %v", err)
	}
	fmt.Println("voicekeep service stopped.")
}

func runUninstall(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Uninstall(); err != nil {
		log.Fatalf("failed to uninstall service: %v", err)
	}
	fmt.Println("voicekeep service uninstalled.")
}

func getLogFilePath() string {
	return "/tmp/voicekeep-service.log"
}

func setupServiceLogging() error {
	f, err := os.OpenFile(getLogFilePath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) {
	fmt.Printf("tailing logs from %s...\n", getLogFilePath())
	c := exec.Command("tail", "-f", getLogFilePath())
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("error tailing logs: %v\n", err)
	}
}
