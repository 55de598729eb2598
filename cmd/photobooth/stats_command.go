package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withCollection(func(c *components) error {
				stats, err := c.media.UsageStats(context.Background())
				if err != nil {
					return err
				}
				count, err := c.media.Count(context.Background())
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "media items: %d\n", count)
				if len(stats) == 0 {
					fmt.Fprintln(out, "no usage recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, stat := range stats {
					lastUsed := "-"
					if stat.LastUsedAt != nil {
						lastUsed = stat.LastUsedAt.Local().Format("2006-01-02 15:04:05")
					}
					rows = append(rows, []string{stat.Action, strconv.FormatInt(stat.Count, 10), lastUsed})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ACTION", "COUNT", "LAST USED"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	statsCmd.AddCommand(newStatsResetCommand(ctx))
	return statsCmd
}

func newStatsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all usage counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCollection(func(c *components) error {
				if err := c.store.ResetUsage(context.Background()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "usage statistics reset")
				return nil
			})
		},
	}
}
