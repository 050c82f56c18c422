package tasks

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/transport"
	"golang.org/x/xerrors"
)

// PullFrom builds the PullFrom task body: two consecutive PUTs to the
// pull path, each carrying a freshly store-derived PullRequest.
// Both requests stream back a payload-object body that is validated,
// accumulated, and partially committed every
// model.MaxPullResponseTransactionObjectCount items so a long pull never
// holds an unbounded batch in memory. The second request's purpose is
// acknowledgment of the first's receipt (and the chance to collect
// anything that arrived in between).
func (f *Factory) PullFrom(friendID model.FriendId) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer f.Registry.Complete(model.PullFrom, friendID)
		friend, ok := f.preamble(friendID)
		if !ok {
			return
		}

		for round := 0; round < 2; round++ {
			if err := f.pullRound(ctx, friend); err != nil {
				log.Warn().Err(err).Str("friend", string(friendID)).Int("round", round).Msg("pull-from round failed")
				return
			}
		}
	}
}

func (f *Factory) pullRound(ctx context.Context, friend model.Friend) error {
	req, err := f.St.GetPullRequest(friend.ID)
	if err != nil {
		return xerrors.Errorf("tasks: get pull request for %s: %w", friend.ID, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	client := f.Clients.ClientForCert(friend.Hostname, friend.Certificate)
	if client == nil {
		return nil
	}
	resp, err := client.Do(ctx, transport.ClientRequest{
		Method: "PUT",
		Path:   model.PullPath,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := model.NewPayloadDecoder(resp.Body)
	var groups []model.Group
	var posts []model.Post
	pendingReq := &req

	commit := func() error {
		if len(groups) == 0 && len(posts) == 0 && pendingReq == nil {
			return nil
		}
		if err := f.St.PutPullResponse(friend.ID, pendingReq, groups, posts); err != nil {
			return xerrors.Errorf("tasks: commit pull response for %s: %w", friend.ID, err)
		}
		groups, posts = nil, nil
		// Acknowledgment applies exactly once: every commit after the
		// first passes a nil PullRequest.
		pendingReq = nil
		return nil
	}

	for dec.More() {
		payload, err := dec.Decode()
		if err != nil {
			return xerrors.Errorf("tasks: decode pull response item: %w", err)
		}
		if err := payload.Validate(); err != nil {
			log.Warn().Err(err).Str("friend", string(friend.ID)).Msg("dropping invalid pulled payload")
			continue
		}
		switch payload.Kind {
		case model.KindGroup:
			groups = append(groups, *payload.Group)
		case model.KindPost:
			posts = append(posts, *payload.Post)
		}
		if len(groups)+len(posts) >= model.MaxPullResponseTransactionObjectCount {
			if err := commit(); err != nil {
				return err
			}
		}
	}
	return commit()
}
