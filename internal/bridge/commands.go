package bridge

import (
	"context"
	"maps"

	"github.com/roach88/navbridge/internal/wire"
)

// Dispatch sends action from this scene. The scene's module name is sent
// as "from" and params["moduleName"] as "to" unless params sets them.
func (n *Navigator) Dispatch(ctx context.Context, action string, params map[string]any) (bool, error) {
	return n.bridge.Dispatch(ctx, n.sceneID, action, n.compose(params))
}

func (n *Navigator) compose(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+2)
	if n.moduleName != "" {
		out[wire.KeyFrom] = n.moduleName
	}
	if to, ok := params[wire.KeyModuleName]; ok {
		out[wire.KeyTo] = to
	}
	maps.Copy(out, params)
	return out
}

// dispatchForResult dispatches action and, once the host accepts it,
// registers the returned Future under scope. Rejection, interception and
// failures settle it cancelled.
func (n *Navigator) dispatchForResult(ctx context.Context, action string, params map[string]any, scope Scope) *Future {
	f := newFuture(n.sceneID)
	n.bridge.dispatchAsync(ctx, n.sceneID, action, n.compose(params), func(accepted bool, err error) {
		if err != nil || !accepted {
			f.settle(Cancelled(), err)
			return
		}
		n.bridge.correlator.Register(scope, f)
	})
	return f
}

// presentForResult allocates a request code, sends it with the command and
// waits for the result in the global map.
func (n *Navigator) presentForResult(ctx context.Context, action string, params map[string]any) *Future {
	code := n.bridge.codes.Next()
	params[wire.KeyRequestCode] = code
	return n.dispatchForResult(ctx, action, params, Global{Code: code})
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Push opens moduleName on top of this scene's stack. The Future resolves
// with whatever the pushed scene sets as its result when it is popped.
func (n *Navigator) Push(ctx context.Context, moduleName string, props, options map[string]any) *Future {
	return n.dispatchForResult(ctx, ActionPush, map[string]any{
		wire.KeyModuleName: moduleName,
		wire.KeyProps:      orEmpty(props),
		wire.KeyOptions:    orEmpty(options),
	}, PerScene{SceneID: n.sceneID})
}

// PushLayout is Push for a whole layout tree.
func (n *Navigator) PushLayout(ctx context.Context, layout map[string]any) *Future {
	return n.dispatchForResult(ctx, ActionPushLayout, map[string]any{
		wire.KeyLayout: layout,
	}, PerScene{SceneID: n.sceneID})
}

// Present shows moduleName modally and waits for its result.
func (n *Navigator) Present(ctx context.Context, moduleName string, props, options map[string]any) *Future {
	return n.presentForResult(ctx, ActionPresent, map[string]any{
		wire.KeyModuleName: moduleName,
		wire.KeyProps:      orEmpty(props),
		wire.KeyOptions:    orEmpty(options),
	})
}

// PresentLayout is Present for a whole layout tree.
func (n *Navigator) PresentLayout(ctx context.Context, layout map[string]any) *Future {
	return n.presentForResult(ctx, ActionPresentLayout, map[string]any{
		wire.KeyLayout: layout,
	})
}

// ShowModal shows moduleName as a modal overlay and waits for its result.
func (n *Navigator) ShowModal(ctx context.Context, moduleName string, props, options map[string]any) *Future {
	return n.presentForResult(ctx, ActionShowModal, map[string]any{
		wire.KeyModuleName: moduleName,
		wire.KeyProps:      orEmpty(props),
		wire.KeyOptions:    orEmpty(options),
	})
}

// ShowModalLayout is ShowModal for a whole layout tree.
func (n *Navigator) ShowModalLayout(ctx context.Context, layout map[string]any) *Future {
	return n.presentForResult(ctx, ActionShowModalLayout, map[string]any{
		wire.KeyLayout: layout,
	})
}

func (n *Navigator) Pop(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionPop, nil)
}

// PopTo pops back to the scene rendering moduleName, and that scene too
// when inclusive is set.
func (n *Navigator) PopTo(ctx context.Context, moduleName string, inclusive bool) (bool, error) {
	return n.Dispatch(ctx, ActionPopTo, map[string]any{
		wire.KeyModuleName: moduleName,
		wire.KeyInclusive:  inclusive,
	})
}

func (n *Navigator) PopToRoot(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionPopToRoot, nil)
}

// RedirectTo replaces this scene with moduleName.
func (n *Navigator) RedirectTo(ctx context.Context, moduleName string, props, options map[string]any) (bool, error) {
	return n.Dispatch(ctx, ActionRedirectTo, map[string]any{
		wire.KeyModuleName: moduleName,
		wire.KeyProps:      orEmpty(props),
		wire.KeyOptions:    orEmpty(options),
	})
}

func (n *Navigator) Dismiss(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionDismiss, nil)
}

func (n *Navigator) HideModal(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionHideModal, nil)
}

func (n *Navigator) ToggleMenu(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionToggleMenu, nil)
}

func (n *Navigator) OpenMenu(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionOpenMenu, nil)
}

func (n *Navigator) CloseMenu(ctx context.Context) (bool, error) {
	return n.Dispatch(ctx, ActionCloseMenu, nil)
}

// CurrentTab asks the host for the selected tab of this scene's tab bar.
func (n *Navigator) CurrentTab(ctx context.Context) (int, error) {
	v, err := n.bridge.query(ctx, wire.MethodCurrentTab, map[string]any{wire.KeySceneID: n.sceneID})
	if err != nil {
		return 0, err
	}
	index, err := wire.ToInt(v)
	if err != nil {
		return 0, &HostError{Method: wire.MethodCurrentTab, Message: err.Error()}
	}
	return index, nil
}

// SwitchTab selects tab index, optionally popping its stack to the root.
func (n *Navigator) SwitchTab(ctx context.Context, index int, popToRoot bool) (bool, error) {
	from, err := n.CurrentTab(ctx)
	if err != nil {
		return false, err
	}
	return n.Dispatch(ctx, ActionSwitchTab, map[string]any{
		wire.KeyFrom:      from,
		wire.KeyTo:        index,
		wire.KeyPopToRoot: popToRoot,
	})
}

// SetResult hands resultCode and data to whoever opened this scene. The
// host delivers it when the scene closes.
func (n *Navigator) SetResult(ctx context.Context, resultCode int, data map[string]any) error {
	return n.bridge.notify(ctx, wire.MethodSetResult, map[string]any{
		wire.KeySceneID:    n.sceneID,
		wire.KeyResultCode: resultCode,
		wire.KeyResultData: data,
	})
}

// IsStackRoot reports whether this scene is the bottom of its stack.
func (n *Navigator) IsStackRoot(ctx context.Context) (bool, error) {
	v, err := n.bridge.query(ctx, wire.MethodIsStackRoot, map[string]any{wire.KeySceneID: n.sceneID})
	if err != nil {
		return false, err
	}
	root, ok := v.(bool)
	if !ok {
		return false, &HostError{Method: wire.MethodIsStackRoot, Message: "reply is not a boolean"}
	}
	return root, nil
}

// SignalFirstRenderComplete tells the host the scene has drawn once.
func (n *Navigator) SignalFirstRenderComplete(ctx context.Context) error {
	return n.bridge.notify(ctx, wire.MethodSignalFirstRenderComplete, map[string]any{wire.KeySceneID: n.sceneID})
}
