package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	galleryCmd := &cobra.Command{
		Use:   "gallery",
		Short: "Inspect and manage the media collection",
	}
	galleryCmd.AddCommand(newGalleryListCommand(ctx))
	galleryCmd.AddCommand(newGalleryShowCommand(ctx))
	galleryCmd.AddCommand(newGalleryRemoveCommand(ctx))
	galleryCmd.AddCommand(newGalleryClearCommand(ctx))
	return galleryCmd
}

func newGalleryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withCollection(func(c *components) error {
				items, err := c.media.List(context.Background(), limit, offset)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "collection is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						string(item.Kind),
						item.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						yesNo(item.ShowInGallery),
						item.JobID,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "KIND", "CREATED", "GALLERY", "JOB"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of items (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of items to skip")
	return cmd
}

func newGalleryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one media item with its cached derivations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withCollection(func(c *components) error {
				item, err := c.media.Get(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "id:           %s\n", item.ID)
				fmt.Fprintf(out, "kind:         %s\n", item.Kind)
				fmt.Fprintf(out, "created:      %s\n", item.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "updated:      %s\n", item.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "job:          %s\n", item.JobID)
				fmt.Fprintf(out, "gallery:      %s\n", yesNo(item.ShowInGallery))
				fmt.Fprintf(out, "unprocessed:  %s\n", item.Unprocessed)
				fmt.Fprintf(out, "processed:    %s\n", item.Processed)

				cached, err := c.store.CachedByMediaItem(context.Background(), item.ID)
				if err != nil {
					return err
				}
				for _, entry := range cached {
					fmt.Fprintf(out, "cached:       %s (%s, processed=%s)\n",
						entry.Path, entry.Dimension, yesNo(entry.Processed))
				}
				return nil
			})
		},
	}
}

func newGalleryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one media item including its files and derivations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCollection(func(c *components) error {
				if err := c.media.Delete(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newGalleryClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every media item, file, and derivation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear the collection without --yes")
			}
			return ctx.withCollection(func(c *components) error {
				if err := c.media.ClearAll(context.Background()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "collection cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the destructive clear")
	return cmd
}
