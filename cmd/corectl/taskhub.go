package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"alchemicore/internal/graphstore"
	"alchemicore/internal/scope"
)

var taskhubCmd = &cobra.Command{
	Use:   "taskhub",
	Short: "inspect TaskHub queues",
}

var taskhubListCmd = &cobra.Command{
	Use:   "list",
	Short: "list TaskHubs in a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scopeFlag(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		hubs, err := store.QueryTaskHubs(ctx, sc)
		if err != nil {
			return err
		}
		for _, hub := range hubs {
			fmt.Println(hub.String())
		}
		return nil
	},
}

var taskhubUnclaimedOnly bool

var taskhubTasksCmd = &cobra.Command{
	Use:   "tasks <hub-scoped-key>",
	Short: "list a TaskHub's actioned tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hubKey, err := scope.ParseScopedKey(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := graphstore.NewStore(ctx, loadConfig(), log)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		var tasks []scope.ScopedKey
		if taskhubUnclaimedOnly {
			tasks, err = store.GetTaskHubUnclaimedTasks(ctx, hubKey)
		} else {
			tasks, err = store.GetTaskHubTasks(ctx, hubKey)
		}
		if err != nil {
			return err
		}
		for _, task := range tasks {
			fmt.Println(task.String())
		}
		return nil
	},
}

func scopeFlag(cmd *cobra.Command) (scope.Scope, error) {
	s, err := cmd.Flags().GetString("scope")
	if err != nil {
		return scope.Scope{}, err
	}
	if s == "" {
		return scope.Scope{Org: scope.Wildcard, Campaign: scope.Wildcard, Project: scope.Wildcard}, nil
	}
	return scope.ParseScope(s)
}

func init() {
	taskhubListCmd.Flags().String("scope", "", "scope filter, e.g. org-campaign-project (default *-*-*)")
	taskhubTasksCmd.Flags().BoolVar(&taskhubUnclaimedOnly, "unclaimed", false, "only list waiting, unclaimed tasks")
	taskhubCmd.AddCommand(taskhubListCmd, taskhubTasksCmd)
}
