package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/cli/reader"
	"github.com/pithecene-io/outpost/cli/render"
	"github.com/pithecene-io/outpost/cli/tui"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List materialized assets with size and digest",
		ArgsUsage: "[path-prefix]",
		Flags:     AssetReadFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	resp, err := reader.InspectAssets(store, c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to inspect assets: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectAssets, resp)
	}
	return r.Render(resp)
}
