package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"photobooth/internal/daemon"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <kind> [index]",
		Short: "Run one capture job (image, collage, animation, video, multicamera)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := mediaitem.ParseKind(args[0])
			if err != nil {
				return err
			}
			index := 0
			if len(args) == 2 {
				index, err = strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("action index: %w", err)
				}
			}
			return runTriggerJob(ctx, cmd.OutOrStdout(), kind, index)
		},
	}
}

// runTriggerJob brings the core up, runs a single job to completion, and
// prints what it produced.
func runTriggerJob(ctx *commandContext, out io.Writer, kind mediaitem.MediaKind, index int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	jobID, err := d.Processing().Trigger(signalCtx, kind, index)
	if err != nil {
		return err
	}
	d.Processing().Wait()

	items, err := d.Collection().ItemsByJob(signalCtx, jobID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("job %s produced no media", jobID)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			string(item.Kind),
			yesNo(item.ShowInGallery),
			item.Processed,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "KIND", "GALLERY", "PROCESSED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
