// Package cmd provides CLI commands for the outpost binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes.
const (
	exitSuccess     = 0
	exitNotApplied  = 1
	exitConfigError = 2
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode (inspect, stats only).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// Flags that locate the agent configuration.
var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to outpost.yaml",
		EnvVars: []string{"OUTPOST_CONFIG"},
	}

	AssetDirFlag = &cli.StringFlag{
		Name:  "asset-dir",
		Usage: "Asset root (overrides agent.asset_dir and agent.home)",
	}
)

// ReadOnlyFlags returns the flags shared by read-only commands.
// --tui is always present so unsupported commands can reject it explicitly.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, NoColorFlag, TUIFlag}
}

// AssetReadFlags returns the flags for commands that read the asset root.
func AssetReadFlags() []cli.Flag {
	return append(ReadOnlyFlags(), ConfigFlag, AssetDirFlag)
}
