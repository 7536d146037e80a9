package harness

import (
	"context"
	"maps"
	"sync"

	"github.com/roach88/navbridge/internal/channel"
	"github.com/roach88/navbridge/internal/testutil"
	"github.com/roach88/navbridge/internal/wire"
)

// recorder is the run's trace. Entries may arrive from the caller, the
// bridge loop or the host's goroutines; seq is stamped under the lock so it
// always matches slice order.
type recorder struct {
	mu      sync.Mutex
	clock   *testutil.DeterministicClock
	entries []TraceEvent
	changed chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		clock:   testutil.NewDeterministicClock(),
		changed: make(chan struct{}),
	}
}

func (r *recorder) add(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = r.clock.Next()
	r.entries = append(r.entries, e)
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *recorder) snapshot() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent{}, r.entries...)
}

// waitFor blocks until an entry at or after index from satisfies match.
func (r *recorder) waitFor(ctx context.Context, from int, match func(TraceEvent) bool) error {
	for {
		r.mu.Lock()
		for _, e := range r.entries[min(from, len(r.entries)):] {
			if match(e) {
				r.mu.Unlock()
				return nil
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sentCode returns the request code or root tag carried by the first
// command recorded at or after index from.
func (r *recorder) sentCode(from int) *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries[min(from, len(r.entries)):] {
		if e.Type != EntryCommand {
			continue
		}
		raw, ok := e.Args[wire.KeyTag]
		if params, isMap := e.Args[wire.KeyParams].(map[string]any); isMap {
			if v, has := params[wire.KeyRequestCode]; has {
				raw, ok = v, true
			}
		}
		if !ok {
			return nil
		}
		code, err := wire.ToInt(raw)
		if err != nil {
			return nil
		}
		return &code
	}
	return nil
}

// tracingChannel records every call and event crossing ch.
type tracingChannel struct {
	inner channel.Channel
	trace *recorder
}

var _ channel.Channel = (*tracingChannel)(nil)

func (c *tracingChannel) Call(method string, args map[string]any, reply channel.ReplyFunc) {
	e := TraceEvent{Type: EntryCommand, Method: method, Args: maps.Clone(args)}
	e.Action, _ = args[wire.KeyAction].(string)
	c.trace.add(e)
	c.inner.Call(method, args, reply)
}

func (c *tracingChannel) Listen(sink channel.EventSink) {
	c.inner.Listen(func(ev wire.Event) {
		c.trace.add(TraceEvent{Type: EntryEvent, Event: ev.Name, Args: maps.Clone(ev.Body)})
		sink(ev)
	})
}
