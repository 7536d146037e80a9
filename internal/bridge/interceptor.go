package bridge

import (
	"context"
	"fmt"
)

// InterceptInfo describes the command under consideration.
//
// From and To carry whatever the command carried: module names for stack
// and modal commands, tab indexes for switchTab. Either may be nil.
type InterceptInfo struct {
	SceneID string
	From    any
	To      any
}

// Interceptor is consulted before every dispatch. Returning true swallows
// the command: it is never sent and the dispatch reports false.
//
// An interceptor may block (for example to ask the user), which is how an
// asynchronous veto is expressed. It runs on the dispatching goroutine, so
// per-scene command order is preserved. A non-nil error, or a panic, aborts
// the dispatch with ErrInterceptor; it is never read as "not intercepted".
type Interceptor func(ctx context.Context, action string, info InterceptInfo) (bool, error)

// SyncInterceptor adapts a plain predicate.
func SyncInterceptor(fn func(action string, info InterceptInfo) bool) Interceptor {
	return func(_ context.Context, action string, info InterceptInfo) (bool, error) {
		return fn(action, info), nil
	}
}

// SetInterceptor installs fn process-wide for this bridge. The last one set
// wins; nil removes it.
func (b *Bridge) SetInterceptor(fn Interceptor) {
	if fn == nil {
		b.interceptor.Store(nil)
		return
	}
	b.interceptor.Store(&fn)
}

// intercept runs the installed interceptor, if any.
func (b *Bridge) intercept(ctx context.Context, action string, info InterceptInfo) (intercepted bool, err error) {
	p := b.interceptor.Load()
	if p == nil {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			intercepted = false
			err = interceptorError(action, fmt.Errorf("panic: %v", r))
		}
	}()

	intercepted, err = (*p)(ctx, action, info)
	if err != nil {
		return false, interceptorError(action, err)
	}
	return intercepted, nil
}
