// Package bridge turns the native SDK's thread-invoked completion callbacks
// into results a goroutine can await. A Waiter is the per-operation listener
// adapter; the Registry tracks outstanding Waiters by correlation id and is
// the only structure touched from both sides of the thread boundary.
//
// The handoff primitive is a 1-buffered channel: the native thread's send
// never blocks and never runs caller code, and the awaiting goroutine wakes
// on the receive. The registry mutex guards only the id map, never a
// delivery or an await.
package bridge

import (
	"context"

	"github.com/openmega/megawait/internal/native"
)

// Outcome is the terminal result of one native operation. Exactly one of
// the two cases holds: a native completion (Request/Code/Message populated)
// or a teardown resolution (Closed set). Immutable once delivered.
type Outcome struct {
	Request *native.Request
	Code    native.Code
	Message string

	// Closed marks an outcome synthesized by Registry.CloseAll because the
	// session was torn down while the operation was outstanding.
	Closed bool
}

// Waiter is a single-use listener bridge: it satisfies native.Listener for
// one submission and delivers that operation's outcome to exactly one
// awaiting goroutine. Create via Registry.NewWaiter.
type Waiter struct {
	id   string
	reg  *Registry
	done chan Outcome
}

// ID returns the correlation id this waiter is registered under.
func (w *Waiter) ID() string { return w.id }

// OnFinish implements native.Listener. It runs on the SDK's worker thread
// and must not block: delivery goes through the registry, which drops the
// outcome if the entry was already resolved, cancelled, or torn down.
func (w *Waiter) OnFinish(req *native.Request, code native.Code, message string) {
	w.reg.Resolve(w.id, Outcome{Request: req, Code: code, Message: message})
}

// Await blocks until the outcome is delivered or ctx is done. On ctx
// expiry the registry entry is removed first, so a native completion that
// arrives later resolves against a stale id and is discarded.
func (w *Waiter) Await(ctx context.Context) (Outcome, error) {
	select {
	case o := <-w.done:
		return o, nil
	case <-ctx.Done():
		w.reg.Remove(w.id)

		// The outcome may have been delivered between the ctx firing and
		// the removal; prefer it, it is already paid for.
		select {
		case o := <-w.done:
			return o, nil
		default:
			return Outcome{}, ctx.Err()
		}
	}
}

// deliver hands the outcome to the awaiting goroutine. The buffered send
// cannot block; the registry guarantees deliver is called at most once per
// waiter because every path removes the entry before delivering.
func (w *Waiter) deliver(o Outcome) {
	w.done <- o
}
