package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/config"
	"github.com/Mirai3103/remote-grader/internal/logging"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "Grade untrusted Starlark submissions against hidden tests",
	Long: `grader runs a learner's Starlark submission and its tests in a restricted
namespace. Without a subcommand it acts as the worker: one JSON request on
stdin, one JSON response line on stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runWorker,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Directory containing config.yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tryCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration or returns the error unchanged.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	if cfg.ConfigFile != "" {
		log.Debugw("configuration loaded", "file", cfg.ConfigFile)
	}
	return log, nil
}
