package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"
)

// StatusCmd reports the running Engine's point-in-time diagnostic snapshot.
var StatusCmd = &ffcli.Command{
	Name:      "status",
	ShortHelp: "report engine status",
	LongHelp: strings.TrimSpace(`

The 'meshctl status' command reports whether the engine is running, how
many worker-pool slots are active, and how much push/location work is
pending.

`),
	FlagSet: newStatusFlagSet(),
	Exec:    runStatus,
}

func newStatusFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("meshctl status", flag.ExitOnError)
	registerControlAddrFlag(fs)
	return fs
}

func runStatus(ctx context.Context, args []string) error {
	c, closer, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closer()

	st, err := c.Internal.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("running:          %v\n", st.Running)
	fmt.Printf("local pool active: %d\n", st.LocalPoolActive)
	fmt.Printf("peer pool active:  %d\n", st.PeerPoolActive)
	fmt.Printf("pending pushes:    %d\n", st.PendingPushes)
	fmt.Printf("location waiters:  %d\n", st.LocationWaiters)
	return nil
}
