package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenor-lang/tenor/internal/bundle"
	"github.com/tenor-lang/tenor/internal/elaborate"
)

var elaborateOut string

var elaborateCmd = &cobra.Command{
	Use:   "elaborate <root.tenor>",
	Short: "Elaborate a contract into its canonical interchange bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, errs := runElaborate(args[0])
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("elaboration failed with %d error(s)", len(errs))
		}
		logger.Info("elaborated", zap.String("etag", res.Etag), zap.Int("constructs", len(res.Index.Order)))

		if elaborateOut != "" {
			return os.WriteFile(elaborateOut, res.Bundle, 0o644)
		}
		_, err := os.Stdout.Write(append(res.Bundle, '\n'))
		return err
	},
}

func init() {
	elaborateCmd.Flags().StringVarP(&elaborateOut, "out", "o", "", "write the bundle to a file instead of stdout")
}

// runElaborate wires the filesystem into the pipeline: the sandbox
// root comes from config, defaulting to the root file's directory when
// config leaves it at ".".
func runElaborate(rootPath string) (*elaborate.Result, []error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, []error{err}
	}
	sandbox := cfg.SandboxRoot
	if sandbox == "" || sandbox == "." {
		sandbox = filepath.Dir(abs)
	}
	loader := bundle.NewLoader(sandbox, func(path string) (string, error) {
		data, err := os.ReadFile(path)
		return string(data), err
	})
	loader.MaxParseErrors = cfg.MaxParseErrors
	el := elaborate.New(loader)
	el.Log = logger
	return el.Run(abs)
}
