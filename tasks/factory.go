package tasks

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/transport"
)

// Circuit is the subset of the transport supervisor every task body's
// preamble consults: abort if the anonymity circuit is not established.
type Circuit interface {
	IsCircuitEstablished() bool
}

// Factory builds the five task bodies, closing over the collaborators
// every body needs: the store, the registry it must report completion to,
// the push queue PushTo drains, and the transport layer it issues
// requests through.
type Factory struct {
	St       store.Store
	Registry *Registry
	Queue    *PushQueue
	Circuit  Circuit
	Clients  ClientPool
}

// ClientPool resolves a friend to the client that addresses its hidden
// service, abstracting transport.Pool so tests can substitute a fake.
type ClientPool interface {
	ClientForCert(hostname string, certPEM []byte) transport.Client
}

// preamble resolves the friend and checks the circuit. It returns false
// if the task body should abort silently.
func (f *Factory) preamble(friendID model.FriendId) (model.Friend, bool) {
	if f.Circuit != nil && !f.Circuit.IsCircuitEstablished() {
		return model.Friend{}, false
	}
	friend, ok := f.St.GetFriendByID(friendID)
	if !ok {
		return model.Friend{}, false
	}
	return friend, true
}

// AskPull builds the AskPull task body: GET the well-known ask-pull path,
// no body, no response processing — it only signals the peer to start its
// own PullFrom toward us.
func (f *Factory) AskPull(friendID model.FriendId) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer f.Registry.Complete(model.AskPull, friendID)
		friend, ok := f.preamble(friendID)
		if !ok {
			return
		}
		client := f.Clients.ClientForCert(friend.Hostname, friend.Certificate)
		if client == nil {
			return
		}
		err := doWithRetry(ctx, func() error {
			resp, err := client.Do(ctx, transport.ClientRequest{Method: "GET", Path: model.AskPullPath})
			if err != nil {
				return err
			}
			return resp.Body.Close()
		})
		if err != nil {
			log.Warn().Err(err).Str("friend", string(friendID)).Msg("ask-pull request failed")
		}
	}
}

// AskLocation builds the AskLocation task body: same shape as AskPull
// against a distinct path. The peer may reject with 503 if it is not
// currently sharing location; that is not treated as an error.
func (f *Factory) AskLocation(friendID model.FriendId) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer f.Registry.Complete(model.AskLocation, friendID)
		friend, ok := f.preamble(friendID)
		if !ok {
			return
		}
		client := f.Clients.ClientForCert(friend.Hostname, friend.Certificate)
		if client == nil {
			return
		}
		err := doWithRetry(ctx, func() error {
			resp, err := client.Do(ctx, transport.ClientRequest{Method: "GET", Path: model.AskLocationPath})
			if err != nil {
				return err
			}
			return resp.Body.Close()
		})
		if err != nil {
			log.Warn().Err(err).Str("friend", string(friendID)).Msg("ask-location request failed")
		}
	}
}
