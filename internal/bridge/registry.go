package bridge

import (
	"sort"
	"sync"
)

// Registry maps scene ids to their single Navigator.
//
// Of never fails and never duplicates. There is no removal: teardown
// invalidates a Navigator's listeners instead, so Of stays safe for a
// scene the caller does not know is gone (the returned Navigator's
// commands simply fail or are ignored at the host).
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	bridge *Bridge

	mu         sync.Mutex
	navigators map[string]*Navigator
}

func newRegistry(b *Bridge) *Registry {
	return &Registry{
		bridge:     b,
		navigators: make(map[string]*Navigator),
	}
}

// Of returns the Navigator for sceneID, creating it on first reference.
func (r *Registry) Of(sceneID string) *Navigator {
	return r.OfModule(sceneID, "")
}

// OfModule is Of, recording moduleName if (and only if) this call creates
// the Navigator. A Navigator's module name never changes afterwards.
func (r *Registry) OfModule(sceneID, moduleName string) *Navigator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nav, ok := r.navigators[sceneID]; ok {
		return nav
	}
	nav := newNavigator(r.bridge, sceneID, moduleName)
	r.navigators[sceneID] = nav
	return nav
}

// Lookup returns the Navigator for sceneID without creating one.
func (r *Registry) Lookup(sceneID string) (*Navigator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nav, ok := r.navigators[sceneID]
	return nav, ok
}

// Len returns the number of Navigators ever created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.navigators)
}

// each calls fn for every Navigator in scene id order.
// fn runs without the registry lock held.
func (r *Registry) each(fn func(*Navigator)) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.navigators))
	for id := range r.navigators {
		ids = append(ids, id)
	}
	navs := make(map[string]*Navigator, len(r.navigators))
	for id, nav := range r.navigators {
		navs[id] = nav
	}
	r.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		fn(navs[id])
	}
}
