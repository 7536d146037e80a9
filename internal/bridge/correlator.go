package bridge

import (
	"log/slog"
	"sort"
)

// Correlator pairs request codes with pending result listeners.
//
// Two tiers:
//   - a global map for negative codes (present, showModal and friends), so a
//     result reaches the requester even if another scene delivers it
//   - one slot per Navigator for code 0 (push style), where installing a new
//     wait cancels the previous one
//
// Single-writer: every method must run on the bridge loop goroutine (or in a
// test that drives the correlator from one goroutine). There is no locking.
//
// INVARIANTS:
//   - every entry put in global is removed exactly once, by Deliver,
//     Invalidate or CancelAll
//   - a Navigator slot holds at most one unsettled Future
//   - nothing is registered for a scene after Invalidate; a late Register
//     settles the Future cancelled instead
type Correlator struct {
	global   map[int]*Future
	registry *Registry
	logger   *slog.Logger
}

// NewCorrelator creates a correlator that resolves per-scene slots through reg.
func NewCorrelator(reg *Registry, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		global:   make(map[int]*Future),
		registry: reg,
		logger:   logger,
	}
}

// Wait creates a Future for requestCode and registers it in the matching scope.
func (c *Correlator) Wait(requestCode int, sceneID string) *Future {
	f := newFuture(sceneID)
	c.Register(ScopeFor(requestCode, sceneID), f)
	return f
}

// Register installs f under scope.
//
// For PerScene the previous slot occupant, if any, is resolved with the
// cancelled sentinel first. For Global a colliding code (which an allocator
// never produces) cancels the older listener rather than leaking it.
//
// A Future owned by a scene that has already been torn down is cancelled
// and not installed. This covers commands whose reply arrives after the
// scene's unmount.
func (c *Correlator) Register(scope Scope, f *Future) {
	if nav, ok := c.registry.Lookup(f.SceneID()); ok && nav.torn {
		c.logger.Debug("cancelling wait for torn-down scene", "scene_id", f.SceneID())
		f.cancel()
		return
	}
	switch s := scope.(type) {
	case Global:
		if prev, ok := c.global[s.Code]; ok {
			c.logger.Warn("request code reused while pending", "request_code", s.Code)
			prev.cancel()
		}
		c.global[s.Code] = f
	case PerScene:
		c.registry.Of(s.SceneID).replaceSlot(f)
	}
}

// Deliver resolves the listener for requestCode.
//
// Negative codes look in the global map; other codes take the slot of
// sceneID. An unknown code (already resolved, cancelled, or torn down) is
// dropped and Deliver returns false.
func (c *Correlator) Deliver(requestCode int, sceneID string, r Result) bool {
	switch s := ScopeFor(requestCode, sceneID).(type) {
	case Global:
		f, ok := c.global[s.Code]
		if !ok {
			c.logger.Debug("dropping orphaned result", "request_code", requestCode, "scene_id", sceneID)
			return false
		}
		delete(c.global, s.Code)
		return f.resolve(r.Code, r.Data)
	case PerScene:
		nav, ok := c.registry.Lookup(s.SceneID)
		if !ok {
			c.logger.Debug("dropping result for unknown scene", "scene_id", sceneID)
			return false
		}
		f := nav.takeSlot()
		if f == nil {
			c.logger.Debug("dropping result with no waiting slot", "scene_id", sceneID)
			return false
		}
		return f.resolve(r.Code, r.Data)
	}
	return false
}

// Invalidate cancels everything owned by sceneID: global listeners the scene
// registered and the scene's slot. Waits registered for the scene afterwards
// are cancelled on arrival. Returns the number of listeners cancelled.
// Safe to call repeatedly.
func (c *Correlator) Invalidate(sceneID string) int {
	var codes []int
	for code, f := range c.global {
		if f.SceneID() == sceneID {
			codes = append(codes, code)
		}
	}
	// Cancel in allocation order for deterministic traces.
	sort.Sort(sort.Reverse(sort.IntSlice(codes)))
	for _, code := range codes {
		c.global[code].cancel()
		delete(c.global, code)
	}

	cancelled := len(codes)
	if nav, ok := c.registry.Lookup(sceneID); ok {
		nav.torn = true
		if nav.clearSlot() {
			cancelled++
		}
	}
	return cancelled
}

// CancelAll cancels every pending listener. Used at shutdown.
func (c *Correlator) CancelAll() int {
	cancelled := 0
	for code, f := range c.global {
		f.cancel()
		delete(c.global, code)
		cancelled++
	}
	c.registry.each(func(nav *Navigator) {
		if nav.clearSlot() {
			cancelled++
		}
	})
	return cancelled
}

// Pending returns the number of global listeners awaiting a result.
func (c *Correlator) Pending() int {
	return len(c.global)
}

// PendingCodes returns the pending global codes, most recent last.
func (c *Correlator) PendingCodes() []int {
	codes := make([]int, 0, len(c.global))
	for code := range c.global {
		codes = append(codes, code)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(codes)))
	return codes
}
