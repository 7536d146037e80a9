package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/navbridge/internal/wire"
)

// Route locates the scene the user currently sees.
type Route struct {
	SceneID    string `json:"sceneId"`
	ModuleName string `json:"moduleName"`
	Mode       string `json:"mode"`
}

// RouteGraph is one node of the host's scene tree.
type RouteGraph struct {
	Layout        string       `json:"layout"`
	SceneID       string       `json:"sceneId"`
	ModuleName    string       `json:"moduleName,omitempty"`
	Mode          string       `json:"mode,omitempty"`
	SelectedIndex int          `json:"selectedIndex,omitempty"`
	Children      []RouteGraph `json:"children,omitempty"`
}

// Find returns the Navigator of the scene rendering moduleName. The bool is
// false when the host has no such scene.
func (b *Bridge) Find(ctx context.Context, moduleName string) (*Navigator, bool, error) {
	v, err := b.query(ctx, wire.MethodFindSceneID, map[string]any{wire.KeyModuleName: moduleName})
	if err != nil {
		return nil, false, err
	}
	sceneID, _ := v.(string)
	if sceneID == "" {
		return nil, false, nil
	}
	return b.registry.OfModule(sceneID, moduleName), true, nil
}

// CurrentRoute asks the host which scene is in front.
func (b *Bridge) CurrentRoute(ctx context.Context) (Route, error) {
	var r Route
	v, err := b.query(ctx, wire.MethodCurrentRoute, map[string]any{})
	if err != nil {
		return r, err
	}
	if err := decodeReply(wire.MethodCurrentRoute, v, &r); err != nil {
		return r, err
	}
	return r, nil
}

// Current returns the Navigator of the scene in front.
func (b *Bridge) Current(ctx context.Context) (*Navigator, error) {
	r, err := b.CurrentRoute(ctx)
	if err != nil {
		return nil, err
	}
	if r.SceneID == "" {
		return nil, &HostError{Method: wire.MethodCurrentRoute, Message: "route has no scene id"}
	}
	return b.registry.OfModule(r.SceneID, r.ModuleName), nil
}

// RouteGraph returns the host's scene tree, one entry per window.
func (b *Bridge) RouteGraph(ctx context.Context) ([]RouteGraph, error) {
	v, err := b.query(ctx, wire.MethodRouteGraph, map[string]any{})
	if err != nil {
		return nil, err
	}
	var graph []RouteGraph
	if err := decodeReply(wire.MethodRouteGraph, v, &graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// decodeReply converts a loosely typed reply into out.
func decodeReply(method string, v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &HostError{Method: method, Message: fmt.Sprintf("encode reply: %v", err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &HostError{Method: method, Message: fmt.Sprintf("decode reply: %v", err)}
	}
	return nil
}
