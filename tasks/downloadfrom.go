package tasks

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/transport"
	"golang.org/x/xerrors"
)

// Preferences is the subset of the preferences reader DownloadFrom's
// policy gate consults.
type Preferences interface {
	FilesOnWifiOnly() bool
	OnWifi() bool
}

// DownloadFrom builds the DownloadFrom task body: apply the Wi-Fi-only
// policy gate, then loop over every in-progress download for friendID,
// resuming each from however many bytes are already on disk via a ranged
// GET, until none remain. Looping inside one slot occupation avoids
// re-entering the scheduler for every item after a friend resumes from
// offline.
func (f *Factory) DownloadFrom(friendID model.FriendId, prefs Preferences) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer f.Registry.Complete(model.DownloadFrom, friendID)
		friend, ok := f.preamble(friendID)
		if !ok {
			return
		}
		if prefs != nil && prefs.FilesOnWifiOnly() && !prefs.OnWifi() {
			return
		}

		for {
			dl, ok, err := f.St.GetNextInProgressDownload(friendID)
			if err != nil {
				log.Warn().Err(err).Str("friend", string(friendID)).Msg("download-from: list in-progress")
				return
			}
			if !ok {
				return
			}
			if err := f.downloadOne(ctx, friend, dl); err != nil {
				log.Warn().Err(err).Str("friend", string(friendID)).Str("resource", dl.ResourceID).Msg("download-from request failed")
				return
			}
		}
	}
}

func (f *Factory) downloadOne(ctx context.Context, friend model.Friend, dl model.DownloadState) error {
	onDisk, err := f.St.CurrentSizeOnDisk(friend.ID, dl.ResourceID)
	if err != nil {
		return xerrors.Errorf("tasks: current size on disk: %w", err)
	}
	if dl.ExpectedSize > 0 && onDisk >= dl.ExpectedSize {
		// The completion write may have landed without the COMPLETE
		// marker being persisted; treat a fully-sized file as done.
		return f.St.UpdateDownloadState(friend.ID, dl.ResourceID, model.DownloadComplete)
	}

	client := f.Clients.ClientForCert(friend.Hostname, friend.Certificate)
	if client == nil {
		return nil
	}
	resp, err := client.Do(ctx, transport.ClientRequest{
		Method: "GET",
		Path:   model.DownloadPath,
		Query:  map[string]string{"resourceId": dl.ResourceID},
		Range:  &transport.ByteRange{Offset: onDisk},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := f.St.OpenAppend(friend.ID, dl.ResourceID)
	if err != nil {
		return xerrors.Errorf("tasks: open append for %s: %w", dl.ResourceID, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return xerrors.Errorf("tasks: stream download body: %w", err)
	}

	return f.St.UpdateDownloadState(friend.ID, dl.ResourceID, model.DownloadComplete)
}
