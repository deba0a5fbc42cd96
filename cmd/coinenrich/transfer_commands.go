package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON array of {id, fields} records into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireLocalBackend(cfg, "import"); err != nil {
				return err
			}
			target := collectionOrDefault(collection, cfg.Store.Collection)

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			store, err := openLocalStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Import(cmd.Context(), target, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d documents into %s\n", count, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Target collection (defaults to the configured coin collection)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var collection string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a collection of the local store as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireLocalBackend(cfg, "export"); err != nil {
				return err
			}
			source := collectionOrDefault(collection, cfg.Store.Collection)

			store, err := openLocalStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var w io.Writer = cmd.OutOrStdout()
			if path := strings.TrimSpace(output); path != "" {
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer file.Close()
				w = file
			}

			count, err := store.Export(cmd.Context(), source, w)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d documents from %s to %s\n", count, source, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Source collection (defaults to the configured coin collection)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func collectionOrDefault(flag, fallback string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return fallback
}
