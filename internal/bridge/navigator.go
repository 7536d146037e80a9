package bridge

import (
	"maps"
	"sync"
)

// Visibility is a scene's on-screen state as last reported by the host.
type Visibility string

const (
	VisibilityPending     Visibility = "pending"
	VisibilityAppeared    Visibility = "appeared"
	VisibilityDisappeared Visibility = "disappeared"
)

// Navigator is the command surface for one host scene.
//
// Obtain Navigators from Bridge.Of; never construct them directly. Methods
// are safe to call from any goroutine.
type Navigator struct {
	bridge     *Bridge
	sceneID    string
	moduleName string

	mu         sync.Mutex
	params     map[string]any
	visibility Visibility

	// slot is the pending per-scene result listener.
	// Owned by the bridge loop; see replaceSlot.
	slot *Future

	// torn is set once the scene has been torn down. Loop only.
	torn bool
}

func newNavigator(b *Bridge, sceneID, moduleName string) *Navigator {
	return &Navigator{
		bridge:     b,
		sceneID:    sceneID,
		moduleName: moduleName,
		params:     make(map[string]any),
		visibility: VisibilityPending,
	}
}

// SceneID returns the host scene identifier.
func (n *Navigator) SceneID() string {
	return n.sceneID
}

// ModuleName returns the module the scene renders, if known.
func (n *Navigator) ModuleName() string {
	return n.moduleName
}

// Params returns a copy of the navigator's params.
func (n *Navigator) Params() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.params)
}

// SetParams merges params into the existing ones. Keys not mentioned keep
// their values.
func (n *Navigator) SetParams(params map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	maps.Copy(n.params, params)
}

// Visibility returns the last reported visibility.
func (n *Navigator) Visibility() Visibility {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visibility
}

func (n *Navigator) setVisibility(v Visibility) {
	n.mu.Lock()
	n.visibility = v
	n.mu.Unlock()
}

// replaceSlot installs f as the pending per-scene listener, resolving any
// previous occupant with the cancelled sentinel. Loop only.
func (n *Navigator) replaceSlot(f *Future) {
	if n.slot != nil {
		n.slot.cancel()
	}
	n.slot = f
}

// takeSlot removes and returns the pending listener. Loop only.
func (n *Navigator) takeSlot() *Future {
	f := n.slot
	n.slot = nil
	return f
}

// clearSlot cancels and removes the pending listener.
// Reports whether there was one. Loop only.
func (n *Navigator) clearSlot() bool {
	f := n.takeSlot()
	if f == nil {
		return false
	}
	f.cancel()
	return true
}
