package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"alchemicore/internal/graphstore"
	"alchemicore/internal/opstrack"
)

// opsCmd lists the operations held by the in-memory tracker of the Store it
// opens. That tracker starts empty and records only calls made through this
// Store within this process; operations run by other processes are not shown.
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "show scheduler operations recorded by this process's store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		for _, op := range store.Ops().List() {
			fmt.Println(opstrack.Summary(op))
		}

		stats := store.Ops().Stats()
		fmt.Printf("\ntotal=%d avg_runtime=%s\n", stats.Total, stats.AverageRunt)
		for kind, count := range stats.ByKind {
			fmt.Printf("  %-24s %d\n", kind, count)
		}
		return nil
	},
}
