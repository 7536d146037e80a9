package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/navbridge/internal/bridge"
	"github.com/roach88/navbridge/internal/channel"
	"github.com/roach88/navbridge/internal/config"
	"github.com/roach88/navbridge/internal/testutil"
	"github.com/roach88/navbridge/internal/wire"
)

// Default per-step timeouts.
const (
	DefaultTimeout     = 2 * time.Second
	DefaultLiveTimeout = 10 * time.Second
)

// Option configures a scenario run.
type Option func(*runOptions)

type runOptions struct {
	logger   *slog.Logger
	recorder bridge.Recorder
	timeout  time.Duration
}

// WithLogger sets the logger handed to the bridge. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// WithRecorder journals the run's traffic.
func WithRecorder(r bridge.Recorder) Option {
	return func(o *runOptions) {
		o.recorder = r
	}
}

// WithTimeout bounds how long a step waits for the bridge or host.
func WithTimeout(d time.Duration) Option {
	return func(o *runOptions) {
		o.timeout = d
	}
}

// Harness executes one scenario against one bridge.
type Harness struct {
	scenario *Scenario
	bridge   *bridge.Bridge
	host     *testutil.FakeHost // nil when live
	trace    *recorder
	logger   *slog.Logger
	timeout  time.Duration

	outcomes map[string]*outcome
	order    []string

	will atomic.Int64
	did  atomic.Int64
}

// outcome is what a call step produced.
type outcome struct {
	call   string
	future *bridge.Future

	// synchronous calls
	accepted *bool
	value    any
	err      error

	// code is the request code (or root tag) the call sent, if any.
	code *int
}

// Run executes scenario against a scripted FakeHost and returns the result.
//
// Each run gets a fresh bridge and deterministic trace sequence numbers.
// A returned error means the scenario could not be executed; failed
// expectations and assertions are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	host := testutil.NewFakeHost()
	for method, policy := range replyPolicies(scenario.Replies) {
		host.OnCall(method, policy)
	}
	return run(ctx, scenario, host, host, DefaultTimeout, opts)
}

// RunLive executes scenario against a real host reached through ch.
// Emit steps and reply rules are skipped; the host produces its own
// events and answers.
func RunLive(ctx context.Context, scenario *Scenario, ch channel.Channel, opts ...Option) (*Result, error) {
	return run(ctx, scenario, ch, nil, DefaultLiveTimeout, opts)
}

func run(ctx context.Context, scenario *Scenario, ch channel.Channel, host *testutil.FakeHost, timeout time.Duration, opts []Option) (*Result, error) {
	o := runOptions{
		logger:  slog.New(slog.DiscardHandler),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	trace := newRecorder()
	bopts := []bridge.Option{bridge.WithLogger(o.logger)}
	if o.recorder != nil {
		bopts = append(bopts, bridge.WithRecorder(o.recorder))
	}
	b := bridge.New(&tracingChannel{inner: ch, trace: trace}, bopts...)

	h := &Harness{
		scenario: scenario,
		bridge:   b,
		host:     host,
		trace:    trace,
		logger:   o.logger,
		timeout:  o.timeout,
		outcomes: make(map[string]*outcome),
	}
	b.SetRootLayoutUpdateListener(
		func() { h.will.Add(1) },
		func() { h.did.Add(1) },
	)
	h.installInterceptor()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = b.Run(runCtx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Kind(), err)
		}
	}

	if err := h.sync(ctx); err != nil {
		return nil, err
	}
	h.recordOutcomes()

	result.Trace = trace.snapshot()
	result.Roots = RootUpdates{Will: int(h.will.Load()), Did: int(h.did.Load())}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) installInterceptor() {
	cfg := config.Config{Interceptor: config.InterceptorConfig{Block: h.scenario.Intercept}}
	rules := cfg.BuildInterceptor()
	if rules == nil {
		return
	}
	h.bridge.SetInterceptor(func(ctx context.Context, action string, info bridge.InterceptInfo) (bool, error) {
		hit, err := rules(ctx, action, info)
		if hit {
			args := map[string]any{wire.KeySceneID: info.SceneID}
			if info.From != nil {
				args[wire.KeyFrom] = info.From
			}
			if info.To != nil {
				args[wire.KeyTo] = info.To
			}
			h.trace.add(TraceEvent{Type: EntryIntercepted, Action: action, Args: args})
		}
		return hit, err
	})
}

// sync waits for the bridge loop to drain.
func (h *Harness) sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.bridge.Sync(ctx); err != nil {
		return fmt.Errorf("bridge did not drain: %w", err)
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) error {
	switch step.Kind() {
	case "call":
		return h.call(ctx, step)
	case "emit":
		return h.emit(ctx, step)
	default:
		return h.expect(ctx, i, step, result)
	}
}

// call performs one bridge operation and remembers its outcome.
func (h *Harness) call(ctx context.Context, step Step) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var nav *bridge.Navigator
	if step.Scene != "" {
		nav = h.bridge.Of(step.Scene)
	}
	start := h.trace.len()
	out := &outcome{call: step.Call}

	accept := func(ok bool, err error) {
		out.accepted = &ok
		out.err = err
	}

	switch step.Call {
	case bridge.ActionPush:
		out.future = nav.Push(ctx, step.Module, step.Props, step.Options)
	case bridge.ActionPushLayout:
		out.future = nav.PushLayout(ctx, step.Layout)
	case bridge.ActionPresent:
		out.future = nav.Present(ctx, step.Module, step.Props, step.Options)
	case bridge.ActionPresentLayout:
		out.future = nav.PresentLayout(ctx, step.Layout)
	case bridge.ActionShowModal:
		out.future = nav.ShowModal(ctx, step.Module, step.Props, step.Options)
	case bridge.ActionShowModalLayout:
		out.future = nav.ShowModalLayout(ctx, step.Layout)
	case CallSetRoot:
		out.future = h.bridge.SetRoot(ctx, step.Layout, step.Sticky)
	case bridge.ActionPop:
		accept(nav.Pop(ctx))
	case bridge.ActionPopTo:
		accept(nav.PopTo(ctx, step.Module, step.Inclusive))
	case bridge.ActionPopToRoot:
		accept(nav.PopToRoot(ctx))
	case bridge.ActionRedirectTo:
		accept(nav.RedirectTo(ctx, step.Module, step.Props, step.Options))
	case bridge.ActionDismiss:
		accept(nav.Dismiss(ctx))
	case bridge.ActionHideModal:
		accept(nav.HideModal(ctx))
	case bridge.ActionSwitchTab:
		accept(nav.SwitchTab(ctx, step.Index, step.PopToRoot))
	case bridge.ActionToggleMenu:
		accept(nav.ToggleMenu(ctx))
	case bridge.ActionOpenMenu:
		accept(nav.OpenMenu(ctx))
	case bridge.ActionCloseMenu:
		accept(nav.CloseMenu(ctx))
	case CallSetResult:
		out.err = nav.SetResult(ctx, *step.ResultCode, step.Data)
	case CallUnmount:
		out.err = h.bridge.Unmount(step.Scene)
	case CallCurrentTab:
		out.value, out.err = nav.CurrentTab(ctx)
	case CallIsStackRoot:
		out.value, out.err = nav.IsStackRoot(ctx)
	case CallFind:
		found, ok, err := h.bridge.Find(ctx, step.Module)
		if ok {
			out.value = found.SceneID()
		}
		out.err = err
	case CallSignalFirstRenderComplete:
		out.err = nav.SignalFirstRenderComplete(ctx)
	default:
		return fmt.Errorf("unknown call %q", step.Call)
	}

	out.code = h.trace.sentCode(start)
	if out.future == nil {
		h.recordReturn(step, out)
	}
	if step.As != "" {
		h.outcomes[step.As] = out
		h.order = append(h.order, step.As)
	}
	return h.sync(ctx)
}

func (h *Harness) recordReturn(step Step, out *outcome) {
	e := TraceEvent{Type: EntryReturn, Action: step.Call, Alias: step.As}
	switch {
	case out.accepted != nil:
		e.Value = *out.accepted
	default:
		e.Value = out.value
	}
	if out.err != nil {
		e.Error = out.err.Error()
	}
	h.trace.add(e)
}

// emit delivers a host event. Skipped against a live host.
func (h *Harness) emit(ctx context.Context, step Step) error {
	if h.host == nil {
		h.logger.Debug("skipping emit against live host", "event", step.Emit)
		return nil
	}

	ev, err := h.buildEvent(step)
	if err != nil {
		return err
	}

	start := h.trace.len()
	h.host.Emit(ev)
	if err := h.sync(ctx); err != nil {
		return err
	}

	if step.Emit == EmitSwitchTab {
		// The bridge re-dispatches tab switches off the loop; wait for the
		// command (or its interception) before moving on.
		if _, _, err := wire.ParseTabIndex(step.Tabs); err != nil {
			return nil
		}
		wctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if err := h.trace.waitFor(wctx, start, isTabSwitch); err != nil {
			return fmt.Errorf("tab switch was never re-dispatched: %w", err)
		}
		return h.sync(ctx)
	}
	return nil
}

func isTabSwitch(e TraceEvent) bool {
	return (e.Type == EntryCommand || e.Type == EntryIntercepted) && e.Action == bridge.ActionSwitchTab
}

func (h *Harness) buildEvent(step Step) (wire.Event, error) {
	code, hasCode, err := h.codeFor(step)
	if err != nil {
		return wire.Event{}, err
	}

	switch step.Emit {
	case EmitResult:
		ev := testutil.ResultEvent(step.Scene, code, 0, step.Data)
		if step.ResultCode != nil {
			ev.Body[wire.KeyResultCode] = *step.ResultCode
		} else {
			delete(ev.Body, wire.KeyResultCode)
		}
		return ev, nil
	case EmitAppear:
		return testutil.LifecycleEvent(wire.OnComponentAppear, step.Scene, step.Module), nil
	case EmitDisappear:
		return testutil.LifecycleEvent(wire.OnComponentDisappear, step.Scene, step.Module), nil
	case EmitUnmount:
		return testutil.UnmountEvent(step.Scene), nil
	case EmitWillSetRoot:
		return testutil.WillSetRootEvent(), nil
	case EmitDidSetRoot:
		if !hasCode {
			return wire.NewEvent(wire.EventDidSetRoot, map[string]any{}), nil
		}
		return testutil.DidSetRootEvent(code), nil
	case EmitSwitchTab:
		return testutil.SwitchTabEvent(step.Scene, step.Tabs), nil
	default:
		return wire.Event{}, fmt.Errorf("unknown event %q", step.Emit)
	}
}

// codeFor resolves the request code an emit step addresses.
func (h *Harness) codeFor(step Step) (code int, ok bool, err error) {
	if step.RequestCode != nil {
		return *step.RequestCode, true, nil
	}
	if step.For == "" {
		return 0, false, nil
	}
	out, found := h.outcomes[step.For]
	if !found {
		return 0, false, fmt.Errorf("unknown alias %q", step.For)
	}
	if out.code == nil {
		return 0, true, nil
	}
	return *out.code, true, nil
}

// expect checks the outcome of an aliased call.
func (h *Harness) expect(ctx context.Context, i int, step Step, result *Result) error {
	out, ok := h.outcomes[step.Expect]
	if !ok {
		return fmt.Errorf("unknown alias %q", step.Expect)
	}

	var failures []string
	if out.future != nil {
		failures = h.checkFuture(ctx, step, out.future)
	} else {
		failures = checkReturn(step, out)
	}
	for _, f := range failures {
		result.AddError(fmt.Sprintf("steps[%d]: expect %s: %s", i, step.Expect, f))
	}
	return nil
}

func (h *Harness) checkFuture(ctx context.Context, step Step, f *bridge.Future) []string {
	if step.State == StatePending {
		if err := h.sync(ctx); err != nil {
			return []string{err.Error()}
		}
		if r, settled := f.Peek(); settled {
			return []string{fmt.Sprintf("expected pending, settled with code %d", r.Code)}
		}
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	r, err := f.Wait(wctx)
	if wctx.Err() != nil {
		return []string{"still pending"}
	}

	var failures []string
	switch step.State {
	case StateCancelled:
		if !r.IsCancelled() {
			failures = append(failures, fmt.Sprintf("expected cancelled, got code %d", r.Code))
		}
	case StateResolved:
		if r.IsCancelled() {
			failures = append(failures, "expected resolved, got cancelled")
		}
	}
	if step.Code != nil && r.Code != *step.Code {
		failures = append(failures, fmt.Sprintf("expected code %d, got %d", *step.Code, r.Code))
	}
	if step.Data != nil && !matchArgs(r.Data, step.Data) {
		failures = append(failures, fmt.Sprintf("expected data %v, got %v", step.Data, r.Data))
	}
	failures = append(failures, checkError(step.Error, err)...)
	return failures
}

func checkReturn(step Step, out *outcome) []string {
	var failures []string
	if step.Accepted != nil {
		if out.accepted == nil {
			failures = append(failures, fmt.Sprintf("%s does not report acceptance", out.call))
		} else if *out.accepted != *step.Accepted {
			failures = append(failures, fmt.Sprintf("expected accepted=%t, got %t", *step.Accepted, *out.accepted))
		}
	}
	if step.Value != nil && !valuesEqual(out.value, step.Value) {
		failures = append(failures, fmt.Sprintf("expected value %v, got %v", step.Value, out.value))
	}
	if step.Error == "" && out.err != nil {
		return append(failures, fmt.Sprintf("unexpected error: %v", out.err))
	}
	return append(failures, checkError(step.Error, out.err)...)
}

func checkError(want string, err error) []string {
	if want == "" {
		return nil
	}
	if err == nil {
		return []string{fmt.Sprintf("expected error containing %q, got none", want)}
	}
	if !strings.Contains(err.Error(), want) {
		return []string{fmt.Sprintf("expected error containing %q, got %q", want, err)}
	}
	return nil
}

// recordOutcomes appends the final state of every waiting call.
func (h *Harness) recordOutcomes() {
	for _, alias := range h.order {
		out := h.outcomes[alias]
		if out.future == nil {
			continue
		}
		e := TraceEvent{Type: EntryOutcome, Action: out.call, Alias: alias, State: StatePending}
		if r, settled := out.future.Peek(); settled {
			e.State = StateResolved
			if r.IsCancelled() {
				e.State = StateCancelled
			}
			code := r.Code
			e.Code = &code
			if r.Data != nil {
				e.Value = r.Data
			}
			if err := out.future.Err(); err != nil {
				e.Error = errorKind(err)
			}
		}
		h.trace.add(e)
	}
}

// errorKind reduces a failure to a stable label for the trace.
func errorKind(err error) string {
	switch {
	case errors.Is(err, bridge.ErrClosed):
		return "closed"
	case bridge.IsSendError(err):
		return "send"
	case errors.Is(err, bridge.ErrInterceptor):
		return "interceptor"
	default:
		return err.Error()
	}
}
