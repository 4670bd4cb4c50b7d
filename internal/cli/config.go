package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CLIConfig holds the CLI's own small persisted state, distinct from
// internal/config.Config (the daemon's env-driven tunables).
type CLIConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// InitConfig loads ~/.voicekeep.yaml, if present.
func InitConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(".voicekeep")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		// Config file found and loaded.
	}
}

// SaveCLIConfig persists the CLI's server URL to ~/.voicekeep.yaml.
func SaveCLIConfig(serverURL string) (string, error) {
	if serverURL != "" {
		viper.Set("server_url", serverURL)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(home, ".voicekeep.yaml")
	return configPath, viper.WriteConfigAs(configPath)
}

// GetCLIConfig returns the current CLI configuration.
func GetCLIConfig() *CLIConfig {
	return &CLIConfig{ServerURL: viper.GetString("server_url")}
}

// resolveServerURL returns the --server-url flag value if set, otherwise
// the persisted config value, otherwise empty (meaning: operate in-process).
func resolveServerURL() string {
	if serverURLFlag != "" {
		return serverURLFlag
	}
	return GetCLIConfig().ServerURL
}
