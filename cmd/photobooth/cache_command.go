package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"photobooth/internal/mediaitem"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the derivation cache",
	}
	cacheCmd.AddCommand(newCacheWarmCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheMaintainCommand(ctx))
	return cacheCmd
}

func newCacheWarmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Pre-generate preview and thumbnail derivations for all items",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withCollection(func(c *components) error {
				items, err := c.media.List(context.Background(), 0, 0)
				if err != nil {
					return err
				}
				dimensions := []mediaitem.Dimension{
					mediaitem.DimensionPreview,
					mediaitem.DimensionThumbnail,
				}
				generated := 0
				for _, item := range items {
					for _, dimension := range dimensions {
						if _, err := c.media.CachedItemFor(context.Background(), item.ID, dimension, true); err != nil {
							fmt.Fprintf(out, "warn: %s %s: %v\n", item.ID, dimension, err)
							continue
						}
						generated++
					}
				}
				fmt.Fprintf(out, "warmed %d derivations for %d items\n", generated, len(items))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached derivations and their files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCollection(func(c *components) error {
				if err := c.cache.Clear(context.Background()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
}

func newCacheMaintainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Purge derivations whose source changed since they were rendered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCollection(func(c *components) error {
				if err := c.cache.Maintain(context.Background()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache maintenance complete")
				return nil
			})
		},
	}
}
