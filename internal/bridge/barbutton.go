package bridge

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/roach88/navbridge/internal/wire"
)

// BarButtonItem is a top-bar button. Options is passed to the host as is;
// OnPress, when set, runs on its own goroutine each time the host reports a
// tap. Items may also be placed anywhere in a SetRoot layout.
type BarButtonItem struct {
	Options map[string]any
	OnPress func(nav *Navigator)
}

// rootLayoutOwner owns handlers bound from a SetRoot layout, whose scenes
// have no ids yet. The next SetRoot releases them.
const rootLayoutOwner = ""

type barButtons struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[string]func(*Navigator) // sceneID -> action -> handler
}

func newBarButtons() *barButtons {
	return &barButtons{handlers: make(map[string]map[string]func(*Navigator))}
}

// bind stores fn under a fresh action id owned by sceneID.
func (bb *barButtons) bind(sceneID string, fn func(*Navigator)) string {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	bb.next++
	action := fmt.Sprintf("__barButton_%d", bb.next)
	if bb.handlers[sceneID] == nil {
		bb.handlers[sceneID] = make(map[string]func(*Navigator))
	}
	bb.handlers[sceneID][action] = fn
	return action
}

// unbind releases every handler owned by sceneID and returns how many.
func (bb *barButtons) unbind(sceneID string) int {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	n := len(bb.handlers[sceneID])
	delete(bb.handlers, sceneID)
	return n
}

// lookup finds the handler for action, first among sceneID's own bindings
// and then among the root layout's.
func (bb *barButtons) lookup(sceneID, action string) (func(*Navigator), bool) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if fn, ok := bb.handlers[sceneID][action]; ok {
		return fn, true
	}
	fn, ok := bb.handlers[rootLayoutOwner][action]
	return fn, ok
}

// options returns the host payload for item, binding its handler to owner.
func (bb *barButtons) options(owner string, item *BarButtonItem) map[string]any {
	if item == nil {
		return nil
	}
	options := maps.Clone(item.Options)
	if options == nil {
		options = map[string]any{}
	}
	if item.OnPress != nil {
		options[wire.KeyAction] = bb.bind(owner, item.OnPress)
	}
	return options
}

// bindTree copies v, replacing every bar button item found in it with its
// bound host payload.
func (bb *barButtons) bindTree(owner string, v any) any {
	switch val := v.(type) {
	case *BarButtonItem:
		if val == nil {
			return nil
		}
		return bb.options(owner, val)
	case BarButtonItem:
		return bb.options(owner, &val)
	case []*BarButtonItem:
		return bb.itemList(owner, val)
	case []BarButtonItem:
		out := make([]any, len(val))
		for i := range val {
			out[i] = bb.options(owner, &val[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = bb.bindTree(owner, e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = bb.bindTree(owner, e)
		}
		return out
	default:
		return v
	}
}

func (bb *barButtons) itemList(owner string, items []*BarButtonItem) []any {
	if items == nil {
		return nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		if options := bb.options(owner, item); options != nil {
			out[i] = options
		}
	}
	return out
}

// bindRootLayout releases the previous root layout's handlers and binds
// the ones in layout.
func (bb *barButtons) bindRootLayout(layout map[string]any) map[string]any {
	bb.unbind(rootLayoutOwner)
	if layout == nil {
		return nil
	}
	return bb.bindTree(rootLayoutOwner, layout).(map[string]any)
}

// handleBarButtonClick routes a tap to its handler. Loop only.
func (b *Bridge) handleBarButtonClick(ev wire.Event) {
	sceneID := ev.String(wire.KeySceneID)
	action := ev.String(wire.KeyAction)

	fn, ok := b.buttons.lookup(sceneID, action)
	if !ok {
		b.logger.Debug("dropping click for unbound bar button", "scene_id", sceneID, "action", action)
		return
	}
	nav := b.registry.Of(sceneID)
	go fn(nav)
}

// SetLeftBarButtonItem replaces the scene's left bar button. A nil item
// removes it.
func (n *Navigator) SetLeftBarButtonItem(ctx context.Context, item *BarButtonItem) error {
	return n.setBarButtonItem(ctx, wire.MethodSetLeftBarButtonItem, item)
}

// SetRightBarButtonItem replaces the scene's right bar button. A nil item
// removes it.
func (n *Navigator) SetRightBarButtonItem(ctx context.Context, item *BarButtonItem) error {
	return n.setBarButtonItem(ctx, wire.MethodSetRightBarButtonItem, item)
}

// SetLeftBarButtonItems replaces all of the scene's left bar buttons. A nil
// slice removes them; nil entries are sent as empty slots.
func (n *Navigator) SetLeftBarButtonItems(ctx context.Context, items []*BarButtonItem) error {
	return n.setBarButtonItems(ctx, wire.MethodSetLeftBarButtonItems, items)
}

// SetRightBarButtonItems is SetLeftBarButtonItems for the right side.
func (n *Navigator) SetRightBarButtonItems(ctx context.Context, items []*BarButtonItem) error {
	return n.setBarButtonItems(ctx, wire.MethodSetRightBarButtonItems, items)
}

func (n *Navigator) setBarButtonItem(ctx context.Context, method string, item *BarButtonItem) error {
	var options any
	if o := n.bridge.buttons.options(n.sceneID, item); o != nil {
		options = o
	}
	return n.bridge.notify(ctx, method, map[string]any{
		wire.KeySceneID: n.sceneID,
		wire.KeyItem:    options,
	})
}

func (n *Navigator) setBarButtonItems(ctx context.Context, method string, items []*BarButtonItem) error {
	var list any
	if l := n.bridge.buttons.itemList(n.sceneID, items); l != nil {
		list = l
	}
	return n.bridge.notify(ctx, method, map[string]any{
		wire.KeySceneID: n.sceneID,
		wire.KeyItems:   list,
	})
}
