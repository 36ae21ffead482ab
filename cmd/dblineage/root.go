package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/viveknathani/dblineage/config"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "dblineage",
		Short:         "Visualize table lineage between two databases",
		Long:          "Build the lineage graph from selected source tables to the target tables they feed, then print it or explore it interactively.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (environment variables only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Human readable debug logs")

	rootCmd.AddCommand(
		newRenderCmd(opts),
		newExploreCmd(opts),
		newSnapshotCmd(opts),
	)

	return rootCmd
}

// load reads the configuration and builds a logger writing to logPath. An
// empty logPath discards logs.
func (o *rootOptions) load(logPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if logPath == "" {
		return cfg, zap.NewNop(), nil
	}

	logger, err := newLogger(cfg, o.verbose, logPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// baseDir is where relative snapshot paths are resolved from.
func (o *rootOptions) baseDir() string {
	if o.configPath == "" {
		return ""
	}
	return filepath.Dir(o.configPath)
}

func newLogger(cfg *config.Config, verbose bool, path string) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
