package main

import (
	"context"

	"github.com/spf13/cobra"

	"alchemicore/internal/graphstore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "declare schema constraints and the sentinel node",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		if err := store.Init(ctx); err != nil {
			return err
		}
		log.Info("schema initialized")
		return nil
	},
}
