package bridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/navbridge/internal/channel"
	"github.com/roach88/navbridge/internal/wire"
)

// Bridge owns the correlation state for one host connection and runs the
// single-writer loop that mutates it.
//
// Thread-safety model:
//   - Navigator methods, Dispatch, SetRoot, queries: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - channel callbacks: may arrive on any goroutine; they are queued
//
// All correlation-map mutations (register, deliver, invalidate, root waiter
// bookkeeping) run inside Run, one at a time, in arrival order.
type Bridge struct {
	channel channel.Channel
	logger  *slog.Logger

	queue      *loopQueue
	registry   *Registry
	correlator *Correlator
	codes      *Allocator
	roots      *rootSync
	buttons    *barButtons
	visibility *visibilityHub
	recorder   Recorder

	interceptor atomic.Pointer[Interceptor]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithInterceptor installs an interceptor at construction.
func WithInterceptor(fn Interceptor) Option {
	return func(b *Bridge) {
		b.SetInterceptor(fn)
	}
}

// WithRecorder journals every command and event through r.
func WithRecorder(r Recorder) Option {
	return func(b *Bridge) {
		b.recorder = r
	}
}

// WithRequestCodes replaces the allocator for present/showModal codes.
func WithRequestCodes(a *Allocator) Option {
	return func(b *Bridge) {
		b.codes = a
	}
}

// WithRootTags replaces the allocator for set-root tags.
func WithRootTags(a *Allocator) Option {
	return func(b *Bridge) {
		b.roots.tags = a
	}
}

// New creates a Bridge over ch and starts listening for host events.
// Events that arrive before Run are queued.
func New(ch channel.Channel, opts ...Option) *Bridge {
	b := &Bridge{
		channel:    ch,
		logger:     slog.Default(),
		queue:      newLoopQueue(),
		codes:      NewAllocator(),
		roots:      newRootSync(NewAllocator()),
		buttons:    newBarButtons(),
		visibility: newVisibilityHub(),
		recorder:   nopRecorder{},
	}
	b.registry = newRegistry(b)

	for _, opt := range opts {
		opt(b)
	}
	b.correlator = NewCorrelator(b.registry, b.logger)

	ch.Listen(b.onHostEvent)
	return b
}

// Of returns the Navigator for sceneID (see Registry.Of).
func (b *Bridge) Of(sceneID string) *Navigator {
	return b.registry.Of(sceneID)
}

// Registry exposes the scene registry.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Run processes queued events and tasks until ctx is cancelled or Stop is
// called. On exit every pending listener is resolved with the cancelled
// sentinel so no caller is left waiting on a dead bridge.
//
// ERROR HANDLING: a malformed event is logged and skipped; the loop never
// stops because of host input.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge loop starting")
	defer b.shutdown()

	for {
		if it, ok := b.queue.TryDequeue(); ok {
			b.process(it)
			continue
		}

		select {
		case <-ctx.Done():
			b.logger.Info("bridge loop stopping: context cancelled")
			return ctx.Err()
		case <-b.queue.Wait():
			if b.queue.Closed() && b.queue.Len() == 0 {
				b.logger.Info("bridge loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Closed reports whether the bridge has stopped accepting work.
func (b *Bridge) Closed() bool {
	return b.queue.Closed()
}

// Sync blocks until every event and task queued before the call has been
// processed by the loop.
func (b *Bridge) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !b.post(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue; Run drains what is queued and returns.
func (b *Bridge) Stop() {
	b.queue.Close()
}

// shutdown closes the queue, runs leftover tasks so their futures settle,
// then cancels everything still pending.
func (b *Bridge) shutdown() {
	b.queue.Close()
	for {
		it, ok := b.queue.TryDequeue()
		if !ok {
			break
		}
		if it.Type == itemTask {
			it.Task()
		}
	}
	n := b.correlator.CancelAll()
	n += b.roots.cancelAll()
	b.logger.Info("bridge loop stopped", "cancelled", n)
}

// post schedules task on the loop. Returns false if the bridge is closed.
func (b *Bridge) post(task func()) bool {
	return b.queue.Enqueue(item{Type: itemTask, Task: task})
}

// onHostEvent is the channel sink. Runs on the channel's goroutine.
func (b *Bridge) onHostEvent(ev wire.Event) {
	b.recordEvent(ev)
	if !b.queue.Enqueue(item{Type: itemHostEvent, Event: ev}) {
		b.logger.Debug("dropping event after close", "event", ev.Name)
	}
}

// process runs one item. Loop only.
func (b *Bridge) process(it item) {
	switch it.Type {
	case itemTask:
		it.Task()
	case itemHostEvent:
		b.handleEvent(it.Event)
	default:
		b.logger.Warn("unknown loop item", "type", it.Type)
	}
}

// handleEvent demultiplexes one host event. Loop only.
func (b *Bridge) handleEvent(ev wire.Event) {
	switch ev.Name {
	case wire.EventNavigation:
		b.handleNavigationEvent(ev)
	case wire.EventWillSetRoot:
		b.roots.willSetRoot()
	case wire.EventDidSetRoot:
		tag, hasTag := ev.Int(wire.KeyTag)
		b.roots.didSetRoot(tag, hasTag)
	case wire.EventSwitchTab:
		b.handleTabSwitch(ev)
	case wire.EventBarButtonItemClick:
		b.handleBarButtonClick(ev)
	default:
		b.logger.Debug("ignoring unknown event", "event", ev.Name)
	}
}

func (b *Bridge) handleNavigationEvent(ev wire.Event) {
	sceneID := ev.String(wire.KeySceneID)
	switch on := ev.String(wire.KeyOn); on {
	case wire.OnComponentResult:
		requestCode, ok := ev.Int(wire.KeyRequestCode)
		if !ok {
			b.logger.Warn("result event without request code", "scene_id", sceneID)
			return
		}
		resultCode, ok := ev.Int(wire.KeyResultCode)
		if !ok {
			resultCode = ResultCancel
		}
		b.correlator.Deliver(requestCode, sceneID, Result{
			Code: resultCode,
			Data: ev.Object(wire.KeyResultData),
		})
	case wire.OnComponentAppear:
		b.setVisibility(sceneID, ev.String(wire.KeyModuleName), VisibilityAppeared)
	case wire.OnComponentDisappear:
		b.setVisibility(sceneID, ev.String(wire.KeyModuleName), VisibilityDisappeared)
	case wire.OnComponentDidUnmount:
		b.invalidate(sceneID)
	default:
		b.logger.Debug("ignoring navigation event", "on", on, "scene_id", sceneID)
	}
}

// Unmount tears the scene down: pending waits it owns resolve cancelled and
// its bar-button bindings are released. Idempotent.
func (b *Bridge) Unmount(sceneID string) error {
	if !b.post(func() { b.invalidate(sceneID) }) {
		return ErrClosed
	}
	return nil
}

// invalidate performs teardown for sceneID. Loop only.
func (b *Bridge) invalidate(sceneID string) {
	cancelled := b.correlator.Invalidate(sceneID)
	released := b.buttons.unbind(sceneID)
	b.logger.Debug("scene torn down",
		"scene_id", sceneID,
		"cancelled", cancelled,
		"buttons_released", released,
	)
}

func (b *Bridge) handleTabSwitch(ev wire.Event) {
	sceneID := ev.String(wire.KeySceneID)
	from, to, err := wire.ParseTabIndex(ev.String(wire.KeyIndex))
	if err != nil {
		b.logger.Warn("ignoring tab switch", "scene_id", sceneID, "error", err)
		return
	}
	// Dispatch waits on the loop for its reply; never block the loop on it.
	go func() {
		_, err := b.Dispatch(context.Background(), sceneID, ActionSwitchTab, map[string]any{
			wire.KeyFrom: from,
			wire.KeyTo:   to,
		})
		if err != nil {
			b.logger.Warn("host tab switch dispatch failed", "scene_id", sceneID, "error", err)
		}
	}()
}
