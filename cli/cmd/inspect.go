package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sluice/cli/reader"
	"github.com/justapithecus/sluice/cli/render"
	"github.com/justapithecus/sluice/cli/tui"
	"github.com/justapithecus/sluice/lode"
)

// InspectCommand returns the inspect command. With a request ID it shows
// one persisted render; --list and --stats read the whole dataset.
func InspectCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.BoolFlag{Name: "list", Usage: "List persisted renders"},
		&cli.BoolFlag{Name: "stats", Usage: "Aggregate persisted outcomes"},
		&cli.StringFlag{Name: "day", Usage: "Restrict to a YYYY-MM-DD partition"},
		&cli.StringFlag{Name: "status", Usage: "With --list, keep only this status"},
		&cli.IntFlag{Name: "limit", Usage: "With --list, cap the number of renders"},
		&cli.BoolFlag{Name: "html", Usage: "Include the reassembled HTML"},
	}
	flags = append(flags, storageFlags()...)
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect renders persisted to lode storage",
		ArgsUsage: "[request-id]",
		Flags:     flags,
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	list, stats := c.Bool("list"), c.Bool("stats")
	requestID := c.Args().First()
	switch {
	case list && stats:
		return cli.Exit("--list and --stats are mutually exclusive", exitConfigError)
	case (list || stats) && requestID != "":
		return cli.Exit("request-id cannot be combined with --list or --stats", exitConfigError)
	case !list && !stats && requestID == "":
		return cli.Exit("request-id required (or --list, --stats)", exitConfigError)
	case list && c.Bool("tui"):
		return cli.Exit("--tui is not supported for inspect --list", exitConfigError)
	}

	ctx := context.Background()
	ds, err := buildReadDataset(ctx, resolveStorage(c, cfg))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open storage: %v", err), exitConfigError)
	}
	rd := reader.NewLodeReader(ds)

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	switch {
	case list:
		items, err := rd.ListRenders(ctx, reader.ListRendersOptions{
			Day:    c.String("day"),
			Status: c.String("status"),
			Limit:  c.Int("limit"),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("list failed: %v", err), exitRenderError)
		}
		return r.Render(items)
	case stats:
		resp, err := rd.StatsRenders(ctx, c.String("day"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("stats failed: %v", err), exitRenderError)
		}
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewStatsRenders, resp)
		}
		return r.Render(resp)
	}

	resp, err := rd.InspectRender(ctx, requestID, c.Bool("html"))
	if errors.Is(err, lode.ErrRenderNotFound) {
		return cli.Exit(fmt.Sprintf("render %s not found", requestID), exitRenderError)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect failed: %v", err), exitRenderError)
	}
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectRender, resp)
	}
	return r.Render(resp)
}
