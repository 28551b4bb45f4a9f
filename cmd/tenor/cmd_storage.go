package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tenor-lang/tenor/internal/storage"
)

var storageN int

var storageCmd = &cobra.Command{
	Use:   "storage-conformance",
	Short: "Run the storage conformance suite against the in-memory driver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != "memory" {
			return fmt.Errorf("unknown storage backend %q (the core ships only \"memory\"; external drivers run this suite from their own repos)", cfg.Storage.Backend)
		}
		factory := func() storage.Store { return storage.NewMemory(logger) }
		if err := storage.Conformance(cmd.Context(), factory, storageN); err != nil {
			return err
		}
		fmt.Printf("conformance passed: update contention, init contention, disjoint updates (N=%d)\n", storageN)
		return nil
	},
}

func init() {
	storageCmd.Flags().IntVar(&storageN, "n", 10, "degree of contention per race")
}
