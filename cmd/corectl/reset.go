package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"alchemicore/internal/graphstore"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "delete every non-sentinel node and drop all three constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return fmt.Errorf("refusing to reset without --yes")
		}

		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		if err := store.Reset(ctx); err != nil {
			return err
		}
		log.Info("database reset")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the destructive reset")
}
