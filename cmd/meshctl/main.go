// Command meshctl is the control CLI: it talks to a running meshd over its
// JSON-RPC control socket to report status and force a restart, grounded in
// a set of ffcli.Command-based subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tethermesh/sync/cmd/meshctl/cli"
)

func main() {
	root := &ffcli.Command{
		Name:       "meshctl",
		ShortUsage: "meshctl <subcommand> [flags]",
		ShortHelp:  "control and inspect a running meshd",
		Subcommands: []*ffcli.Command{
			cli.StatusCmd,
			cli.RestartCmd,
		},
		Exec: func(ctx context.Context, args []string) error {
			return ffcli.ErrHelp
		},
	}

	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "meshctl:", err)
		os.Exit(1)
	}
}
