package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voicekeep",
	Short: "Voicekeep personal voice pipeline",
	Long:  `Runs and operates the voice-intelligence pipeline: orchestrator, watch-folder ingester, and speaker identity service.`,
}

// serverURLFlag, when set, routes operator commands through the HTTP API
// instead of running them in-process (spec.md §4.5/§6, teacher's
// client.go HTTP-vs-local split).
var serverURLFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURLFlag, "server-url", "", "operate against a remote voicekeepd instance instead of this machine's filesystem")
	cobra.OnInitialize(InitConfig)
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
