// Package server implements the peer-facing request handlers: the
// peer-request side of the wire protocol, invoked from the peer-request
// worker pool without ever acquiring the engine mutex — every handler
// talks to the store directly and schedules follow-up work via Triggers.
package server

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/transport"
	"golang.org/x/xerrors"
)

// Triggers is the subset of the engine a Handler calls back into. Every
// method here takes only the lock of the engine component it touches (task
// registry, location-recipient set, event router); server handlers never
// hold the engine mutex.
type Triggers interface {
	TriggerPullFrom(friend model.FriendId)
	TriggerDownloadFrom(friend model.FriendId)
	AddLocationRecipient(friend model.FriendId)
	PublishNewSelfLocationFix(loc model.Location)
}

// Preferences is the subset of the Preferences reader handlers consult.
type Preferences interface {
	CurrentlySharingLocation() bool
	FilesOnWifiOnly() bool
	OnWifi() bool
}

// LocationFixer is the location-provider collaborator: Start asks it to
// produce one fresh fix, asynchronously, which eventually surfaces as a
// NewSelfLocationFix event.
type LocationFixer interface {
	Start(ctx context.Context)
}

// Handler implements transport.RequestHandler against a durable store and
// the Engine's scheduling hooks.
type Handler struct {
	St       store.Store
	Triggers Triggers
	Prefs    Preferences
	Fixer    LocationFixer
}

var _ transport.RequestHandler = (*Handler)(nil)

func (h *Handler) resolveFriend(req transport.Request) (model.Friend, error) {
	friend, ok := h.St.GetFriendByCertificate(req.PeerCertificate)
	if !ok {
		return model.Friend{}, xerrors.Errorf("server: unrecognized peer certificate")
	}
	return friend, nil
}

// HandleAskPull triggers a local PullFrom against the requesting friend.
func (h *Handler) HandleAskPull(ctx context.Context, req transport.Request) transport.Response {
	friend, err := h.resolveFriend(req)
	if err != nil {
		return transport.Error(403, err)
	}
	h.Triggers.TriggerPullFrom(friend.ID)
	return transport.Empty()
}

// HandleAskLocation rejects unless currentlySharingLocation() is true;
// otherwise it registers friend as a location recipient and starts the
// location fixer.
func (h *Handler) HandleAskLocation(ctx context.Context, req transport.Request) transport.Response {
	friend, err := h.resolveFriend(req)
	if err != nil {
		return transport.Error(403, err)
	}
	if h.Prefs == nil || !h.Prefs.CurrentlySharingLocation() {
		return transport.NotAvailable()
	}
	h.Triggers.AddLocationRecipient(friend.ID)
	if h.Fixer != nil {
		h.Fixer.Start(ctx)
	}
	return transport.Empty()
}

// HandlePush iterates the request body as a JSON payload stream, validates
// and stores each item, and triggers a follow-up PullFrom for every friend
// the push implies needs one.
func (h *Handler) HandlePush(ctx context.Context, req transport.Request) transport.Response {
	friend, err := h.resolveFriend(req)
	if err != nil {
		return transport.Error(403, err)
	}

	dec := model.NewPayloadDecoder(req.Body)
	needsPull := map[model.FriendId]struct{}{}

	for dec.More() {
		payload, err := dec.Decode()
		if err != nil {
			return transport.Error(400, xerrors.Errorf("server: decode push payload: %w", err))
		}
		if err := payload.Validate(); err != nil {
			return transport.Error(400, xerrors.Errorf("server: invalid push payload: %w", err))
		}

		switch payload.Kind {
		case model.KindGroup:
			if err := h.St.PutPushedGroup(friend.ID, *payload.Group); err != nil {
				return transport.Error(500, xerrors.Errorf("server: store pushed group: %w", err))
			}
			for _, member := range payload.Group.Members {
				if _, ok := h.St.GetFriendByID(member); ok {
					needsPull[member] = struct{}{}
				}
			}
		case model.KindLocation:
			if err := h.St.PutPushedLocation(friend.ID, *payload.Location); err != nil {
				return transport.Error(500, xerrors.Errorf("server: store pushed location: %w", err))
			}
		case model.KindPost:
			isNew, err := h.St.PutPushedPost(friend.ID, *payload.Post)
			if err != nil {
				return transport.Error(500, xerrors.Errorf("server: store pushed post: %w", err))
			}
			if isNew {
				needsPull[friend.ID] = struct{}{}
			}
		}
	}

	for id := range needsPull {
		h.Triggers.TriggerPullFrom(id)
	}
	return transport.Empty()
}

// HandlePull parses the peer's PullRequest, acknowledges their receipt
// progress, and streams back every unacknowledged Group/Post as a payload
// stream.
func (h *Handler) HandlePull(ctx context.Context, req transport.Request) transport.Response {
	friend, err := h.resolveFriend(req)
	if err != nil {
		return transport.Error(403, err)
	}

	var pullReq model.PullRequest
	if err := decodeJSON(req.Body, &pullReq); err != nil {
		return transport.Error(400, xerrors.Errorf("server: decode pull request: %w", err))
	}
	if err := h.St.ConfirmSentToPullRequest(friend.ID, pullReq); err != nil {
		return transport.Error(500, xerrors.Errorf("server: confirm sent to pull request: %w", err))
	}

	it, err := h.St.PullResponseIterator(friend.ID, pullReq)
	if err != nil {
		return transport.Error(500, xerrors.Errorf("server: build pull response iterator: %w", err))
	}

	return transport.Response{StatusCode: 200, Body: newIteratorReader(it)}
}

// HandleDownload resolves the requested resource, applies the Wi-Fi-only
// gate, and streams the requested byte range back with its MIME type.
func (h *Handler) HandleDownload(ctx context.Context, req transport.Request) transport.Response {
	friend, err := h.resolveFriend(req)
	if err != nil {
		return transport.Error(403, err)
	}
	if h.Prefs != nil && h.Prefs.FilesOnWifiOnly() && !h.Prefs.OnWifi() {
		return transport.NotAvailable()
	}

	resourceID := req.Query["resourceId"]
	resource, err := h.St.GetLocalResourceForDownload(friend.ID, resourceID)
	if err != nil {
		if err == store.ErrNotFound {
			return transport.Error(404, err)
		}
		return transport.Error(500, xerrors.Errorf("server: resolve download resource: %w", err))
	}

	offset := int64(0)
	if req.Range != nil {
		offset = req.Range.Offset
	}
	return transport.Response{
		StatusCode: 200,
		MIMEType:   resource.MIMEType,
		Body:       newRangeReader(resource.Reader, offset),
	}
}

// GetFriendNicknameByCertificate is a diagnostic lookup used for the
// server layer's access-log lines.
func (h *Handler) GetFriendNicknameByCertificate(cert []byte) string {
	friend, ok := h.St.GetFriendByCertificate(cert)
	if !ok {
		log.Warn().Msg("server: nickname lookup for unrecognized certificate")
		return ""
	}
	return friend.Nickname
}

// UpdateFriendSent and UpdateFriendReceived are per-friend transfer
// bookkeeping hooks; the transport Server calls these once a handler's
// response/request body has been fully streamed, since only it observes
// the final byte count.
func (h *Handler) UpdateFriendSent(cert []byte, when int64, bytes int64) {
	friend, ok := h.St.GetFriendByCertificate(cert)
	if !ok {
		return
	}
	if err := h.St.UpdateFriendSentOrThrow(friend.ID, when, bytes); err != nil {
		log.Warn().Err(err).Str("friend", string(friend.ID)).Msg("server: update friend sent bookkeeping")
		return
	}
	log.Debug().Str("friend", string(friend.ID)).Str("sent", humanize.Bytes(uint64(bytes))).Msg("server: sent")
}

func (h *Handler) UpdateFriendReceived(cert []byte, when int64, bytes int64) {
	friend, ok := h.St.GetFriendByCertificate(cert)
	if !ok {
		return
	}
	if err := h.St.UpdateFriendReceivedOrThrow(friend.ID, when, bytes); err != nil {
		log.Warn().Err(err).Str("friend", string(friend.ID)).Msg("server: update friend received bookkeeping")
		return
	}
	log.Debug().Str("friend", string(friend.ID)).Str("received", humanize.Bytes(uint64(bytes))).Msg("server: received")
}
