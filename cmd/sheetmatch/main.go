// Command sheetmatch finds the datasheet of a component from the text
// read off its marking.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wbrown/sheetmatch"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "sheetmatch",
		Short:         "Match OCR readings of part markings to a datasheet catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the config)")

	rootCmd.AddCommand(matchCmd, identifyCmd, glyphsCmd, tableCmd, matchesCmd, clearCacheCmd)
}

// setup loads the configuration and builds the logger.
func setup() (sheetmatch.Config, *slog.Logger, error) {
	cfg, err := sheetmatch.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := sheetmatch.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// openEngine loads the configuration and builds an engine.
func openEngine() (*sheetmatch.Engine, *slog.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	engine, err := sheetmatch.New(cfg, sheetmatch.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

// tolerate turns cache persistence failures into warnings. The value
// they accompany is valid.
func tolerate(logger *slog.Logger, err error) error {
	if err != nil && sheetmatch.IsPersistError(err) {
		logger.Warn("results were not saved to the cache", "error", err)
		return nil
	}
	return err
}
