// Package main provides the outpost CLI entrypoint.
//
// Usage:
//
//	outpost <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: the operation was not applied (apply) or an unexpected error
//   - 2: configuration or usage error
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/cli/cmd"
	"github.com/pithecene-io/outpost/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// Replaced in tests.
var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

func main() {
	app := &cli.App{
		Name:           "outpost",
		Usage:          "Edge agent asset synchronization",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ApplyCommand(),
			cmd.InspectCommand(),
			cmd.StatsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// Errors that reach here were not routed through ExitErrHandler.
		osExit(1)
	}
}

// exitErrHandler exits with the code carried by cli.Exit errors, printing
// the message unless it is only the default "exit status N".
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(stderr, msg)
		}
		osExit(code)
		return
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	osExit(1)
}
