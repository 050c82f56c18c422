package engine

import (
	"sync"
	"time"

	"github.com/tethermesh/sync/model"
)

// watchdog implements two mutually exclusive single-shot timers: a
// not-connected timeout armed at startup (cleared once the circuit
// establishes) and a no-communication timeout armed once connected
// (extended on every observed friend communication). Either firing
// triggers a full engine restart.
type watchdog struct {
	onFire func()

	mu    sync.Mutex
	timer *time.Timer
}

func newWatchdog(onFire func()) *watchdog {
	return &watchdog{onFire: onFire}
}

// ArmNotConnected starts (or restarts) the not-connected timeout.
func (w *watchdog) ArmNotConnected() {
	w.arm(model.NotConnectedTimeout)
}

// SwitchToNoComm cancels any pending timer and starts the no-communication
// timeout; the transport supervisor calls it when the circuit becomes ready.
func (w *watchdog) SwitchToNoComm() {
	w.arm(model.NoCommTimeout)
}

// Extend cancels any pending timer and re-arms the no-communication
// timeout at its full duration, whichever timeout was armed before, per the
// UpdatedFriend reaction ("communication observed").
func (w *watchdog) Extend() {
	w.arm(model.NoCommTimeout)
}

func (w *watchdog) arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.onFire)
}

// Stop disarms the watchdog entirely, e.g. on engine shutdown.
func (w *watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
