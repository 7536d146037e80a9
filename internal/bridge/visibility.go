package bridge

import (
	"maps"
	"slices"
	"sync"
)

// VisibilityListener observes one scene.
type VisibilityListener func(v Visibility)

// GlobalVisibilityListener observes every scene.
type GlobalVisibilityListener func(sceneID string, v Visibility)

// Subscription removes a listener when no longer needed.
type Subscription struct {
	remove func()
	once   sync.Once
}

// Remove unregisters the listener. Safe to call more than once.
func (s *Subscription) Remove() {
	s.once.Do(s.remove)
}

type visibilityHub struct {
	mu      sync.Mutex
	nextID  int
	scoped  map[string]map[int]VisibilityListener
	globals map[int]GlobalVisibilityListener
}

func newVisibilityHub() *visibilityHub {
	return &visibilityHub{
		scoped:  make(map[string]map[int]VisibilityListener),
		globals: make(map[int]GlobalVisibilityListener),
	}
}

// AddVisibilityListener calls fn whenever sceneID appears or disappears.
// Listeners run on the bridge loop and must not block.
func (b *Bridge) AddVisibilityListener(sceneID string, fn VisibilityListener) *Subscription {
	h := b.visibility
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.scoped[sceneID] == nil {
		h.scoped[sceneID] = make(map[int]VisibilityListener)
	}
	h.scoped[sceneID][id] = fn

	return &Subscription{remove: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.scoped[sceneID], id)
		if len(h.scoped[sceneID]) == 0 {
			delete(h.scoped, sceneID)
		}
	}}
}

// AddGlobalVisibilityListener calls fn for every visibility change.
// Listeners run on the bridge loop and must not block.
func (b *Bridge) AddGlobalVisibilityListener(fn GlobalVisibilityListener) *Subscription {
	h := b.visibility
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.globals[id] = fn

	return &Subscription{remove: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.globals, id)
	}}
}

// snapshot returns the listeners to notify for sceneID, in registration order.
func (h *visibilityHub) snapshot(sceneID string) ([]VisibilityListener, []GlobalVisibilityListener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var scoped []VisibilityListener
	for _, id := range slices.Sorted(maps.Keys(h.scoped[sceneID])) {
		scoped = append(scoped, h.scoped[sceneID][id])
	}
	var globals []GlobalVisibilityListener
	for _, id := range slices.Sorted(maps.Keys(h.globals)) {
		globals = append(globals, h.globals[id])
	}
	return scoped, globals
}

// setVisibility records v for the scene and notifies listeners. Loop only.
func (b *Bridge) setVisibility(sceneID, moduleName string, v Visibility) {
	nav := b.registry.OfModule(sceneID, moduleName)
	nav.setVisibility(v)

	scoped, globals := b.visibility.snapshot(sceneID)
	for _, fn := range scoped {
		fn(v)
	}
	for _, fn := range globals {
		fn(sceneID, v)
	}
}
