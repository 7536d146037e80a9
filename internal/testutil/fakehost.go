package testutil

import (
	"maps"
	"sync"

	"github.com/roach88/navbridge/internal/channel"
	"github.com/roach88/navbridge/internal/wire"
)

// HostCall is one call the bridge made on a FakeHost.
type HostCall struct {
	Method string
	Args   map[string]any
}

// Params returns the dispatch params of the call, or nil.
func (c HostCall) Params() map[string]any {
	p, _ := c.Args[wire.KeyParams].(map[string]any)
	return p
}

// Action returns the dispatch action of the call, or "".
func (c HostCall) Action() string {
	a, _ := c.Args[wire.KeyAction].(string)
	return a
}

// ReplyPolicy computes the host's answer to a call.
type ReplyPolicy func(args map[string]any) (any, error)

// Reply returns a policy that always answers value.
func Reply(value any) ReplyPolicy {
	return func(map[string]any) (any, error) { return value, nil }
}

// Fail returns a policy that always answers with err.
func Fail(err error) ReplyPolicy {
	return func(map[string]any) (any, error) { return nil, err }
}

type heldReply struct {
	reply  channel.ReplyFunc
	policy ReplyPolicy
	args   map[string]any
}

// DefaultReply is the answer a FakeHost gives when no policy is set for
// method: dispatches are accepted, the current tab is 0, every scene is a
// stack root and anything else answers nil.
func DefaultReply(method string) ReplyPolicy {
	switch method {
	case wire.MethodDispatch:
		return Reply(true)
	case wire.MethodCurrentTab:
		return Reply(0)
	case wire.MethodIsStackRoot:
		return Reply(true)
	default:
		return Reply(nil)
	}
}

// FakeHost is a scripted in-memory host implementing channel.Channel.
//
// Calls are recorded in order and answered synchronously by the policy set
// for their method. Dispatches are accepted by default. Events are pushed
// to the bridge with Emit.
//
// Thread-safety: safe for concurrent use.
type FakeHost struct {
	mu       sync.Mutex
	calls    []HostCall
	policies map[string]ReplyPolicy
	holding  map[string]bool
	held     map[string][]heldReply
	sink     channel.EventSink
}

var _ channel.Channel = (*FakeHost)(nil)

// NewFakeHost creates a host that accepts every dispatch.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		policies: make(map[string]ReplyPolicy),
		holding:  make(map[string]bool),
		held:     make(map[string][]heldReply),
	}
}

// OnCall sets the reply policy for method.
func (h *FakeHost) OnCall(method string, p ReplyPolicy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.policies[method] = p
}

// Hold defers replies to method until Release.
func (h *FakeHost) Hold(method string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.holding[method] = true
}

// Release stops holding method and answers the deferred calls in order.
// Returns how many replies were sent.
func (h *FakeHost) Release(method string) int {
	h.mu.Lock()
	pending := h.held[method]
	delete(h.held, method)
	delete(h.holding, method)
	h.mu.Unlock()

	for _, p := range pending {
		p.reply(p.policy(p.args))
	}
	return len(pending)
}

// Call implements channel.Channel.
func (h *FakeHost) Call(method string, args map[string]any, reply channel.ReplyFunc) {
	h.mu.Lock()
	h.calls = append(h.calls, HostCall{Method: method, Args: maps.Clone(args)})
	policy, ok := h.policies[method]
	if !ok {
		policy = DefaultReply(method)
	}
	if reply != nil && h.holding[method] {
		h.held[method] = append(h.held[method], heldReply{reply: reply, policy: policy, args: args})
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if reply != nil {
		reply(policy(args))
	}
}

// Listen implements channel.Channel.
func (h *FakeHost) Listen(sink channel.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

// Emit delivers ev to the listening bridge. Events emitted before Listen
// are dropped.
func (h *FakeHost) Emit(ev wire.Event) {
	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// Calls returns a snapshot of every recorded call.
func (h *FakeHost) Calls() []HostCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HostCall(nil), h.calls...)
}

// CallsTo returns the recorded calls of method.
func (h *FakeHost) CallsTo(method string) []HostCall {
	var out []HostCall
	for _, c := range h.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Dispatches returns the recorded dispatch calls.
func (h *FakeHost) Dispatches() []HostCall {
	return h.CallsTo(wire.MethodDispatch)
}

// ResultEvent builds the host's componentResult notification.
func ResultEvent(sceneID string, requestCode, resultCode int, data map[string]any) wire.Event {
	body := map[string]any{
		wire.KeyOn:          wire.OnComponentResult,
		wire.KeySceneID:     sceneID,
		wire.KeyRequestCode: requestCode,
		wire.KeyResultCode:  resultCode,
	}
	if data != nil {
		body[wire.KeyResultData] = data
	}
	return wire.NewEvent(wire.EventNavigation, body)
}

// LifecycleEvent builds a navigationEvent for on (appear, disappear, unmount).
func LifecycleEvent(on, sceneID, moduleName string) wire.Event {
	return wire.NewEvent(wire.EventNavigation, map[string]any{
		wire.KeyOn:         on,
		wire.KeySceneID:    sceneID,
		wire.KeyModuleName: moduleName,
	})
}

// UnmountEvent builds the host's teardown notification.
func UnmountEvent(sceneID string) wire.Event {
	return LifecycleEvent(wire.OnComponentDidUnmount, sceneID, "")
}

// WillSetRootEvent builds the host's willSetRoot notification.
func WillSetRootEvent() wire.Event {
	return wire.NewEvent(wire.EventWillSetRoot, map[string]any{})
}

// DidSetRootEvent builds the host's didSetRoot notification carrying tag.
func DidSetRootEvent(tag int) wire.Event {
	return wire.NewEvent(wire.EventDidSetRoot, map[string]any{wire.KeyTag: tag})
}

// SwitchTabEvent builds a user tab switch notification.
func SwitchTabEvent(sceneID, index string) wire.Event {
	return wire.NewEvent(wire.EventSwitchTab, map[string]any{
		wire.KeySceneID: sceneID,
		wire.KeyIndex:   index,
	})
}

// BarButtonClickEvent builds a bar button tap notification.
func BarButtonClickEvent(sceneID, action string) wire.Event {
	return wire.NewEvent(wire.EventBarButtonItemClick, map[string]any{
		wire.KeySceneID: sceneID,
		wire.KeyAction:  action,
	})
}
