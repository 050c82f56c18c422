package tasks

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/transport"
)

// PushTo builds the PushTo task body: drain friendID's push queue,
// PUTting each payload in turn, until the queue is empty — at which point
// the epilogue must re-check under the registry's lock before clearing
// the slot, via CompleteOrContinue, to avoid dropping a payload enqueued
// between the last Dequeue and the slot clearing.
func (f *Factory) PushTo(friendID model.FriendId) func(ctx context.Context) {
	return func(ctx context.Context) {
		friend, ok := f.preamble(friendID)
		if !ok {
			f.Registry.Complete(model.PushTo, friendID)
			return
		}

		for {
			payload, ok := f.Queue.Dequeue(friendID)
			if !ok {
				again := f.Registry.CompleteOrContinue(model.PushTo, friendID, func() bool {
					return f.Queue.HasPending(friendID)
				})
				if again {
					continue
				}
				return
			}

			if err := f.pushOne(ctx, friend, payload); err != nil {
				log.Warn().Err(err).Str("friend", string(friendID)).Msg("push-to request failed")
				f.Registry.Complete(model.PushTo, friendID)
				return
			}
		}
	}
}

func (f *Factory) pushOne(ctx context.Context, friend model.Friend, payload model.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := f.Clients.ClientForCert(friend.Hostname, friend.Certificate)
	if client == nil {
		return nil
	}
	resp, err := client.Do(ctx, transport.ClientRequest{
		Method: "PUT",
		Path:   model.PushPath,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch payload.Kind {
	case model.KindGroup:
		return f.St.ConfirmSentToPayload(friend.ID, payload)
	case model.KindPost:
		return f.St.ConfirmSentToPayload(friend.ID, payload)
	default:
		return nil
	}
}
