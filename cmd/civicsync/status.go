package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue job counts and the most recent sync outcome per city",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.conductor.Status(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "queue: pending=%d processing=%d completed=%d failed=%d dead_letter=%d\n",
			status.Queue.Pending, status.Queue.Processing, status.Queue.Completed,
			status.Queue.Failed, status.Queue.DeadLetter)

		if len(status.LastResults) == 0 {
			fmt.Fprintln(out, "no sync passes recorded yet this process")
			return nil
		}
		for banana, r := range status.LastResults {
			fmt.Fprintf(out, "%s: %s (%d meetings found, %d stored, %.2fs)\n",
				banana, r.Status, r.MeetingsFound, r.ItemsStored, r.DurationSeconds)
		}
		return nil
	},
}
