package main

import (
	"context"

	"github.com/spf13/cobra"

	"alchemicore/internal/graphstore"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "verify schema constraints and sentinel node are present",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		if err := store.Check(ctx); err != nil {
			return err
		}
		log.Info("schema check passed")
		return nil
	},
}
