package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the document index, or load it if it already exists",
	Long: `Builds the index from the configured documents directory. An existing
index is reused as is; pass --rebuild to delete it and build a new one.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "delete the existing index first")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if rebuild {
		if err := a.store.Drop(ctx); err != nil {
			return fmt.Errorf("failed to delete index: %w", err)
		}
		cmd.Printf("Deleted index at %s\n", location(cfg))
	}

	if err := a.assistant.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}
	cmd.Printf("Index ready at %s\n", location(cfg))
	return nil
}
