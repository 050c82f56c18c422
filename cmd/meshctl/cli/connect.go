// Package cli implements meshctl's subcommands, one ffcli.Command per
// file.
package cli

import (
	"context"
	"flag"

	jsonrpc "github.com/filecoin-project/go-jsonrpc"
	"github.com/tethermesh/sync/control"
)

// controlAddr is shared by every subcommand's flag set, threaded through
// connect.
var controlAddr string

func registerControlAddrFlag(fs *flag.FlagSet) {
	fs.StringVar(&controlAddr, "control-addr", "127.0.0.1:4321", "meshd control socket address")
}

// connect dials meshd's control socket and returns a populated client plus
// its closer.
func connect(ctx context.Context) (*control.Client, jsonrpc.ClientCloser, error) {
	var c control.Client
	closer, err := jsonrpc.NewClient(ctx, "ws://"+controlAddr+"/rpc/v0", control.Namespace, &c.Internal, nil)
	if err != nil {
		return nil, nil, err
	}
	return &c, closer, nil
}
