// Package main implements the tenor dev CLI: a thin shell over the
// contract compilation-and-evaluation pipeline.
//
// Commands:
//   - cmd_elaborate.go - elaborateCmd: source -> canonical interchange bundle
//   - cmd_analyze.go   - analyzeCmd: bundle or source -> S1-S8 report
//   - cmd_eval.go      - evalCmd: rules-only and flow evaluation
//   - cmd_storage.go   - storageCmd: conformance suite against the in-memory driver
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenor-lang/tenor/internal/config"
	"github.com/tenor-lang/tenor/internal/logx"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tenor",
	Short: "Tenor contract toolchain: elaborate, analyze, and evaluate contracts",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = logx.New(cfg.Logging.Level, cfg.Logging.JSONFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "tenor.yaml", "path to the toolchain config file")
	rootCmd.AddCommand(elaborateCmd, analyzeCmd, evalCmd, storageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
