package coordinator

import (
	"context"
	"net/http"

	"github.com/loopctl/loopctl/loop"
)

// RequestHandle is the Go shape [Manager.Request] accepts in place of a
// duck-typed thenable-with-abort: the adapter's own resolution mechanism
// (Then) plus a way to cancel it early (Abort).
type RequestHandle interface {
	Then(onResolve func(any), onReject func(error))
	Abort(reason any) error
}

// HTTPRequest is the ready-to-use [RequestHandle], wrapping an *http.Request
// dispatched via client.Do inside [loop.Loop.Promisify], with Abort backed
// by a context.CancelFunc rather than any cooperative polling.
type HTTPRequest struct {
	promise *loop.ChainedPromise
	cancel  context.CancelFunc
}

// NewHTTPRequest sends req on a new goroutine via Promisify, using client
// (http.DefaultClient if nil). The request starts as soon as NewHTTPRequest
// is called, before it is registered with [Manager.Request].
func NewHTTPRequest(l *loop.Loop, req *http.Request, client *http.Client) *HTTPRequest {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	hr := &HTTPRequest{cancel: cancel}
	hr.promise = l.Promisify(func() (any, error) {
		return client.Do(req)
	})
	return hr
}

// Then attaches onResolve/onReject to the underlying promise.
func (r *HTTPRequest) Then(onResolve func(any), onReject func(error)) {
	r.promise.Then(
		func(v any) (any, error) {
			if onResolve != nil {
				onResolve(v)
			}
			return nil, nil
		},
		func(err error) (any, error) {
			if onReject != nil {
				onReject(err)
			}
			return nil, nil
		},
	)
}

// Abort cancels the in-flight request. reason is accepted for interface
// conformance with [RequestHandle.Abort]'s replacement-forwarding contract
// but otherwise unused — the underlying context carries no room for it.
func (r *HTTPRequest) Abort(reason any) error {
	r.cancel()
	return nil
}

// Request registers r: its destructor calls r.Abort, passing the
// successor's id as the abort reason only when r is cascade-cleared by a
// successor registered with [JoinReplace] — this is how the successor informs the remote endpoint
// why the prior request died, per spec.md §4.3's tie-break rule.
func (m *Manager) Request(r RequestHandle, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)

	reg := &registration{
		kind:    kindRequest,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     r,
	}
	reg.destroy = func(id uint64, ctx CancelContext) error {
		var reason any = ctx.Reason
		if ctx.ReplacedBy != nil {
			reason = ctx.ReplacedBy.ID
		}
		return r.Abort(reason)
	}

	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	k, group := reg.kind, reg.group
	r.Then(
		func(v any) {
			m.fireRequestComplete(k, group, link, v)
		},
		func(err error) {
			m.fireRequestComplete(k, group, link, err)
		},
	)
	return link.ID, nil
}

func (m *Manager) fireRequestComplete(k kind, group any, link *Link, result any) {
	if link.removed {
		return
	}
	m.completeLink(k, group, link)
	link.fireComplete(result)
}

// ClearRequest aborts the request registered under id.
func (m *Manager) ClearRequest(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindRequest, ID: id, HasID: true})
}
