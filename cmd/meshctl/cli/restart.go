package cli

import (
	"context"
	"flag"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/peterbourgon/ff/v3/ffcli"
)

// RestartCmd forces a full engine stop/start cycle, the same operation a
// watchdog expiry triggers internally.
var RestartCmd = &ffcli.Command{
	Name:      "restart",
	ShortHelp: "force an engine restart",
	LongHelp: strings.TrimSpace(`

The 'meshctl restart' command asks the daemon to stop and start the engine,
exactly as a watchdog timer expiry does internally.

`),
	FlagSet: newRestartFlagSet(),
	Exec:    runRestart,
}

var restartYes bool

func newRestartFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("meshctl restart", flag.ExitOnError)
	registerControlAddrFlag(fs)
	fs.BoolVar(&restartYes, "yes", false, "skip the confirmation prompt")
	return fs
}

func runRestart(ctx context.Context, args []string) error {
	if !restartYes {
		confirmed := false
		prompt := &survey.Confirm{Message: "Restart the running engine now?"}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	c, closer, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closer()
	return c.Internal.Restart(ctx)
}
