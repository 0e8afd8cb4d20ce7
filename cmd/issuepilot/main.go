package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/issuepilot/issuepilot/internal/config"
)

var (
	configPath string
	logFile    string
	verbose    bool

	cfg           *config.Config
	logger        *slog.Logger
	closeLogger   = func() error { return nil }
	skipConfigFor = map[string]bool{"init": true, "help": true, "completion": true}
)

var rootCmd = &cobra.Command{
	Use:   "issuepilot",
	Short: "Search Jira and create issues without filing duplicates",
	Long: `issuepilot talks to a Jira automation gateway and the Anthropic API.

Before an issue is created it searches the project for similar issues,
asks the model to score them and shows any likely duplicates.

Configuration is read from issuepilot.yaml (see 'issuepilot init') and
the environment: ANTHROPIC_API_KEY, ISSUEPILOT_GATEWAY_URL,
ISSUEPILOT_GATEWAY_TOKEN and the ISSUEPILOT_DEDUP_* settings.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipConfigFor[cmd.Name()] {
			return nil
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level, _ := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		path := cfg.Log.File
		if logFile != "" {
			path = logFile
		}
		logger, closeLogger = config.SetupLogger(path, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./issuepilot.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file (overrides log.file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
