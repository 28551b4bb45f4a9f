package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tenor-lang/tenor/internal/analyze"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/interchange"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <bundle.json | root.tenor>",
	Short: "Run the S1-S8 static analyses and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		report, err := analyze.Run(cmd.Context(), idx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// loadIndex accepts either an interchange bundle (analysis is a pure
// function of the interchange) or a .tenor source root, which is
// elaborated first.
func loadIndex(path string) (*index.Index, error) {
	if strings.HasSuffix(path, ".tenor") {
		res, errs := runElaborate(path)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return nil, fmt.Errorf("elaboration failed with %d error(s)", len(errs))
		}
		return res.Index, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, fmt.Errorf("%s: neither a .tenor source file nor a JSON bundle", path)
	}
	dec, err := interchange.Decode(data)
	if err != nil {
		return nil, err
	}
	return index.Build(dec.Constructs)
}
