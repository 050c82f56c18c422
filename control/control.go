// Package control implements the daemon control surface: meshctl talks to
// meshd over a local JSON-RPC connection to report engine status and
// request a restart.
package control

import (
	"context"

	"github.com/tethermesh/sync/engine"
	"github.com/tethermesh/sync/model"
)

// Namespace is the go-jsonrpc namespace meshd registers its backend under
// and meshctl dials against.
const Namespace = "Meshd"

// Backend is the daemon-side implementation the control socket serves.
type Backend struct {
	Engine *engine.Engine
}

// Status reports a point-in-time snapshot of the running Engine.
func (b *Backend) Status(ctx context.Context) (engine.Status, error) {
	return b.Engine.StatusSnapshot(), nil
}

// Restart performs a full stop/start cycle of the Engine, the same
// operation a watchdog expiry triggers internally.
func (b *Backend) Restart(ctx context.Context) error {
	b.Engine.Restart(ctx)
	return nil
}

// EditGroup saves a group the local user owns and schedules a push to its
// members.
func (b *Backend) EditGroup(ctx context.Context, g model.Group) error {
	b.Engine.PutSelfGroup(g)
	return nil
}

// Client is populated by jsonrpc.NewClient against a running meshd's
// control socket; each field is filled in with a function that performs
// one JSON-RPC round trip to the matching Backend method.
type Client struct {
	Internal struct {
		Status    func(ctx context.Context) (engine.Status, error)
		Restart   func(ctx context.Context) error
		EditGroup func(ctx context.Context, g model.Group) error
	}
}
