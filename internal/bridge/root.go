package bridge

import (
	"context"
	"sync"

	"github.com/roach88/navbridge/internal/wire"
)

// rootSync pairs setRoot commands with their didSetRoot events.
//
// A root replacement is not scene-scoped (the new root has no scene id
// yet), so it uses its own tag stream and waiter map, parallel to the
// Correlator.
//
// pending counts logical transitions in flight. While it is non-zero,
// willSetRoot events are duplicates of a transition onWill already
// announced and are suppressed. didSetRoot resets it.
type rootSync struct {
	tags *Allocator

	// loop-owned
	pending int
	waiters map[int]*Future

	mu     sync.Mutex
	onWill func()
	onDid  func()
}

func newRootSync(tags *Allocator) *rootSync {
	return &rootSync{
		tags:    tags,
		waiters: make(map[int]*Future),
	}
}

func (r *rootSync) listeners() (onWill, onDid func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onWill, r.onDid
}

// begin marks a bridge-initiated transition and registers its waiter. Loop only.
func (r *rootSync) begin(tag int, f *Future) {
	onWill, _ := r.listeners()
	r.pending++
	if onWill != nil {
		onWill()
	}
	r.waiters[tag] = f
}

// abort forgets a transition whose command never reached the host. Loop only.
func (r *rootSync) abort(tag int, err error) {
	f, ok := r.waiters[tag]
	if !ok {
		return
	}
	delete(r.waiters, tag)
	if r.pending > 0 {
		r.pending--
	}
	f.settle(Cancelled(), err)
}

// willSetRoot handles the host's willSetRoot event. Loop only.
func (r *rootSync) willSetRoot() {
	if r.pending > 0 {
		return
	}
	// Host-initiated transition: announce once, suppress repeats.
	r.pending = 1
	if onWill, _ := r.listeners(); onWill != nil {
		onWill()
	}
}

// didSetRoot handles the host's didSetRoot event. Loop only.
func (r *rootSync) didSetRoot(tag int, hasTag bool) {
	var waiter *Future
	if hasTag {
		if f, ok := r.waiters[tag]; ok {
			waiter = f
			delete(r.waiters, tag)
		}
	}

	inFlight := r.pending > 0 || waiter != nil
	r.pending = 0
	if inFlight {
		if _, onDid := r.listeners(); onDid != nil {
			onDid()
		}
	}
	if waiter != nil {
		waiter.resolve(ResultOK, nil)
	}
}

// cancelAll resolves every root waiter with the cancelled sentinel. Loop only.
func (r *rootSync) cancelAll() int {
	n := 0
	for tag, f := range r.waiters {
		f.cancel()
		delete(r.waiters, tag)
		n++
	}
	r.pending = 0
	return n
}

// SetRootLayoutUpdateListener installs the root transition callbacks.
// onWill runs once when a transition starts, onDid once when it ends.
// Both run on the bridge loop and must not block; nil disables either.
func (b *Bridge) SetRootLayoutUpdateListener(onWill, onDid func()) {
	b.roots.mu.Lock()
	defer b.roots.mu.Unlock()
	b.roots.onWill = onWill
	b.roots.onDid = onDid
}

// SetRoot replaces the host's whole scene tree with layout.
//
// The returned Future resolves with ResultOK when the host reports the
// replacement for this call's tag. It resolves cancelled if the command
// could not be sent or the bridge shuts down first.
//
// Bar button items anywhere in layout are bound and sent as their host
// payload; their handlers live until the next SetRoot. The caller's layout
// is not modified.
func (b *Bridge) SetRoot(ctx context.Context, layout map[string]any, sticky bool) *Future {
	layout = b.buttons.bindRootLayout(layout)
	tag := b.roots.tags.Next()
	f := newFuture("")

	// Register before sending so the matching didSetRoot cannot overtake it.
	if !b.post(func() { b.roots.begin(tag, f) }) {
		return settledFuture("", Cancelled(), ErrClosed)
	}

	args := map[string]any{
		wire.KeyLayout: layout,
		wire.KeySticky: sticky,
		wire.KeyTag:    tag,
	}
	b.call(ctx, wire.MethodSetRoot, args, func(_ any, err error) {
		if err == nil {
			return
		}
		err = sendError(wire.MethodSetRoot, err)
		if !b.post(func() { b.roots.abort(tag, err) }) {
			f.settle(Cancelled(), err)
		}
	})
	return f
}
