package engine

import (
	"context"

	"github.com/tethermesh/sync/transport"
)

// boundedHandler wraps a transport.RequestHandler so every dispatch
// acquires a slot from the peer-request pool before running and releases it
// after, bounding how many peer requests execute concurrently. This keeps a
// flood of peer requests from starving local push/pull work.
type boundedHandler struct {
	inner transport.RequestHandler
	pool  *Pool
}

func (p *Pool) wrapHandler(inner transport.RequestHandler) transport.RequestHandler {
	return &boundedHandler{inner: inner, pool: p}
}

var _ transport.RequestHandler = (*boundedHandler)(nil)

func (h *boundedHandler) run(ctx context.Context, fn func(context.Context, transport.Request) transport.Response, req transport.Request) transport.Response {
	h.pool.Acquire()
	defer h.pool.Release()
	return fn(ctx, req)
}

func (h *boundedHandler) HandleAskPull(ctx context.Context, req transport.Request) transport.Response {
	return h.run(ctx, h.inner.HandleAskPull, req)
}

func (h *boundedHandler) HandleAskLocation(ctx context.Context, req transport.Request) transport.Response {
	return h.run(ctx, h.inner.HandleAskLocation, req)
}

func (h *boundedHandler) HandlePush(ctx context.Context, req transport.Request) transport.Response {
	return h.run(ctx, h.inner.HandlePush, req)
}

func (h *boundedHandler) HandlePull(ctx context.Context, req transport.Request) transport.Response {
	return h.run(ctx, h.inner.HandlePull, req)
}

func (h *boundedHandler) HandleDownload(ctx context.Context, req transport.Request) transport.Response {
	return h.run(ctx, h.inner.HandleDownload, req)
}

// UpdateFriendSent and UpdateFriendReceived forward to inner when it
// implements transport.TransferObserver, so wrapping in boundedHandler
// doesn't hide that capability from the Transport Supervisor's type
// assertion.
func (h *boundedHandler) UpdateFriendSent(cert []byte, when int64, bytes int64) {
	if t, ok := h.inner.(transport.TransferObserver); ok {
		t.UpdateFriendSent(cert, when, bytes)
	}
}

func (h *boundedHandler) UpdateFriendReceived(cert []byte, when int64, bytes int64) {
	if t, ok := h.inner.(transport.TransferObserver); ok {
		t.UpdateFriendReceived(cert, when, bytes)
	}
}
