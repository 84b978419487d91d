package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCityCmd = &cobra.Command{
	Use:   "sync-city <banana>",
	Short: "Run one sync pass for a single city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.conductor.SyncCity(ctx, args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d meetings found, %d stored, %.2fs)\n",
			result.Banana, result.Status, result.MeetingsFound, result.ItemsStored, result.DurationSeconds)
		if result.Status == "failed" {
			return fmt.Errorf("sync failed: %s", result.Error)
		}
		return nil
	},
}

var syncAndProcessCityCmd = &cobra.Command{
	Use:   "sync-and-process-city <banana>",
	Short: "Sync one city, then drain every job that sync produced for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.conductor.SyncAndProcessCity(ctx, args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d meetings found, %d stored, %.2fs)\n",
			result.Banana, result.Status, result.MeetingsFound, result.ItemsStored, result.DurationSeconds)
		if err != nil {
			return err
		}
		if result.Status == "failed" {
			return fmt.Errorf("sync failed: %s", result.Error)
		}
		return nil
	},
}
