package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/cli/reader"
	"github.com/pithecene-io/outpost/cli/render"
	"github.com/pithecene-io/outpost/cli/tui"
)

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize the asset root",
		Flags:  AssetReadFlags(),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	stats, err := reader.StatsAssets(store)
	if err != nil {
		return fmt.Errorf("failed to compute asset stats: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsAssets, stats)
	}
	return r.Render(stats)
}
