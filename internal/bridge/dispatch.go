package bridge

import (
	"context"
	"fmt"

	"github.com/roach88/navbridge/internal/wire"
)

// Actions sent through the dispatch host method.
const (
	ActionPush            = "push"
	ActionPushLayout      = "pushLayout"
	ActionPop             = "pop"
	ActionPopTo           = "popTo"
	ActionPopToRoot       = "popToRoot"
	ActionRedirectTo      = "redirectTo"
	ActionPresent         = "present"
	ActionPresentLayout   = "presentLayout"
	ActionDismiss         = "dismiss"
	ActionShowModal       = "showModal"
	ActionShowModalLayout = "showModalLayout"
	ActionHideModal       = "hideModal"
	ActionSwitchTab       = "switchTab"
	ActionToggleMenu      = "toggleMenu"
	ActionOpenMenu        = "openMenu"
	ActionCloseMenu       = "closeMenu"
)

// Dispatch sends action for sceneID and reports whether the host accepted it.
//
// The interceptor runs first; an intercepted command returns (false, nil)
// without contacting the host. A send-level failure returns an error
// wrapping ErrSend.
func (b *Bridge) Dispatch(ctx context.Context, sceneID, action string, params map[string]any) (bool, error) {
	type outcome struct {
		accepted bool
		err      error
	}
	ch := make(chan outcome, 1)
	b.dispatchAsync(ctx, sceneID, action, params, func(accepted bool, err error) {
		ch <- outcome{accepted, err}
	})

	select {
	case o := <-ch:
		return o.accepted, o.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// dispatchAsync is the dispatch protocol with a continuation.
//
// done runs exactly once. When the host answers, done runs on the loop, so
// a continuation that registers a result wait is ordered before any event
// the host emits after its reply. When no answer is involved (intercepted,
// interceptor failure, closed bridge) done runs inline; those paths never
// touch correlation state.
func (b *Bridge) dispatchAsync(ctx context.Context, sceneID, action string, params map[string]any, done func(accepted bool, err error)) {
	if params == nil {
		params = map[string]any{}
	}

	intercepted, err := b.intercept(ctx, action, InterceptInfo{
		SceneID: sceneID,
		From:    params[wire.KeyFrom],
		To:      params[wire.KeyTo],
	})
	if err != nil {
		b.logger.Warn("interceptor failed", "action", action, "scene_id", sceneID, "error", err)
		done(false, err)
		return
	}
	if intercepted {
		b.logger.Debug("command intercepted", "action", action, "scene_id", sceneID)
		done(false, nil)
		return
	}
	if b.queue.Closed() {
		done(false, ErrClosed)
		return
	}

	args := map[string]any{
		wire.KeySceneID: sceneID,
		wire.KeyAction:  action,
		wire.KeyParams:  params,
	}
	b.call(ctx, wire.MethodDispatch, args, func(value any, err error) {
		accepted, err := decodeAccepted(value, err)
		if !b.post(func() { done(accepted, err) }) {
			done(false, ErrClosed)
		}
	})
}

// decodeAccepted turns a dispatch reply into the acceptance flag.
func decodeAccepted(value any, err error) (bool, error) {
	if err != nil {
		return false, sendError(wire.MethodDispatch, err)
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, &HostError{Method: wire.MethodDispatch, Message: fmt.Sprintf("unexpected reply type %T", value)}
	}
}

// call records and sends a host call.
func (b *Bridge) call(ctx context.Context, method string, args map[string]any, reply func(any, error)) {
	b.recordCommand(ctx, method, args)
	b.channel.Call(method, args, reply)
}

// query performs a request/response round trip that touches no
// correlation state, so the reply is consumed directly.
func (b *Bridge) query(ctx context.Context, method string, args map[string]any) (any, error) {
	if b.queue.Closed() {
		return nil, ErrClosed
	}

	type answer struct {
		value any
		err   error
	}
	ch := make(chan answer, 1)
	b.call(ctx, method, args, func(value any, err error) {
		ch <- answer{value, err}
	})

	select {
	case a := <-ch:
		if a.err != nil {
			return nil, sendError(method, a.err)
		}
		return a.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// notify sends a call that expects no answer.
func (b *Bridge) notify(ctx context.Context, method string, args map[string]any) error {
	if b.queue.Closed() {
		return ErrClosed
	}
	b.call(ctx, method, args, nil)
	return nil
}
