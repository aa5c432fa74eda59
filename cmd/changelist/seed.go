package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/changelist/internal/bookstore"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and seed a demo catalog database",
	Long:  "Apply the catalog schema at --db and load the demo books, authors, and contributors. Intended for a fresh file.",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	path := viperInst.GetString("db")
	if path == "" {
		return fmt.Errorf("database path is required")
	}

	db, err := bookstore.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := bookstore.EnsureSchema(db); err != nil {
		return err
	}
	if err := bookstore.Seed(db); err != nil {
		return err
	}

	mainLogger.Info("seeded demo catalog", "path", path)
	if !viperInst.GetBool("quiet") {
		fmt.Fprintf(cmd.OutOrStdout(), "seeded demo catalog at %s\n", path)
	}
	return nil
}
