/*
main.go - Application entry point

PURPOSE:
  Command-line front end of the wage compliance engine. Runs the HTTP
  service, checks a single request file, or looks up a required rate.

COMMANDS:
  serve           Start the HTTP API
  check <file>    Check one request JSON file and print the response
  rates lookup    Print the required rate for an age and date

GLOBAL FLAGS:
  --config   YAML configuration file (default: built-in defaults)
  --rates    Rate document path (default: embedded UK rates)
  --rules    Component rule document path (default: embedded rules)

EXAMPLES:
  # Run the API with a file database
  ./server serve --config=/etc/nmw/config.yaml --db=./data/compliance.db

  # Run the API without a database file
  ./server serve --memory

  # Check one pay period
  ./server check request.json

  # Required rate for a 20 year old on 9 June 2024
  ./server rates lookup --age=20 --date=2024-06-09

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/config"
	"github.com/warp/wage-compliance/rates"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	ratesPath  string
	rulesPath  string
}

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "UK minimum wage compliance engine",
	Long:          "Checks pay reference periods against the UK National Minimum and Living Wage\nand suggests remediation for shortfalls.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&rootFlags.ratesPath, "rates", "", "rate document path (overrides config)")
	f.StringVar(&rootFlags.rulesPath, "rules", "", "component rule document path (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app is the wiring shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	loader *rates.Loader
	engine *compliance.Engine
}

// loadConfig reads --config and applies the global overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, err
	}
	if rootFlags.ratesPath != "" {
		cfg.Rates.Path = rootFlags.ratesPath
	}
	if rootFlags.rulesPath != "" {
		cfg.Rules.Path = rootFlags.rulesPath
	}
	return cfg, nil
}

// newApp loads rates and rules and builds the engine.
func newApp(cfg *config.Config) (*app, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	loader := rates.NewLoader(cfg.Rates.Path, logger.Named("rates"))
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	rules, err := cfg.LoadRules()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	engine := compliance.NewEngine(loader, compliance.Options{
		Rules:      rules,
		Classifier: cfg.ClassifierConfig(),
		Fixes:      cfg.FixesConfig(),
		Logger:     logger,
	})

	return &app{cfg: cfg, logger: logger, loader: loader, engine: engine}, nil
}
