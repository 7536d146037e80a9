package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/navbridge/internal/bridge"
	"github.com/roach88/navbridge/internal/config"
	"github.com/roach88/navbridge/internal/wire"
)

// Scenario is a scripted conversation between a bridge and its host.
// Steps run in order; assertions are evaluated against the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Intercept lists commands the bridge interceptor swallows.
	Intercept []config.BlockRule `yaml:"intercept,omitempty"`

	// Replies overrides how the fake host answers calls.
	// Ignored when running against a live host.
	Replies []ReplyRule `yaml:"replies,omitempty"`

	// Steps is the script.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace.
	// Supported types: trace_contains, trace_order, trace_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ReplyRule sets the fake host's answer for method (and, for dispatch,
// optionally one action). Error takes precedence over Value.
type ReplyRule struct {
	Method string `yaml:"method"`
	Action string `yaml:"action,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// Step is one scripted action. Exactly one of Call, Emit or Expect is set;
// the remaining fields are its arguments.
type Step struct {
	// Call names a bridge operation (see Calls).
	Call string `yaml:"call,omitempty"`

	// Emit names a host event (see Emits).
	Emit string `yaml:"emit,omitempty"`

	// Expect names the alias of an earlier call whose outcome is checked.
	Expect string `yaml:"expect,omitempty"`

	Scene     string         `yaml:"scene,omitempty"`
	Module    string         `yaml:"module,omitempty"`
	Props     map[string]any `yaml:"props,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
	Layout    map[string]any `yaml:"layout,omitempty"`
	Data      map[string]any `yaml:"data,omitempty"`
	Index     int            `yaml:"index,omitempty"`
	Tabs      string         `yaml:"tabs,omitempty"`
	PopToRoot bool           `yaml:"pop_to_root,omitempty"`
	Inclusive bool           `yaml:"inclusive,omitempty"`
	Sticky    bool           `yaml:"sticky,omitempty"`

	// ResultCode is the code of a setResult call or a result event.
	ResultCode *int `yaml:"result_code,omitempty"`

	// RequestCode addresses a result event (or tags a didSetRoot).
	RequestCode *int `yaml:"request_code,omitempty"`

	// For takes RequestCode from the command an earlier alias sent.
	For string `yaml:"for,omitempty"`

	// As names the outcome of a call for later expect steps.
	As string `yaml:"as,omitempty"`

	// Expectations, used by expect steps.
	State    string `yaml:"state,omitempty"`
	Code     *int   `yaml:"code,omitempty"`
	Accepted *bool  `yaml:"accepted,omitempty"`
	Value    any    `yaml:"value,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// Kind returns "call", "emit" or "expect".
func (s Step) Kind() string {
	switch {
	case s.Call != "":
		return "call"
	case s.Emit != "":
		return "emit"
	default:
		return "expect"
	}
}

// Call names.
const (
	CallSetRoot                   = "setRoot"
	CallSetResult                 = "setResult"
	CallUnmount                   = "unmount"
	CallCurrentTab                = "currentTab"
	CallIsStackRoot               = "isStackRoot"
	CallFind                      = "find"
	CallSignalFirstRenderComplete = "signalFirstRenderComplete"
)

// Emit names.
const (
	EmitResult      = "result"
	EmitAppear      = "appear"
	EmitDisappear   = "disappear"
	EmitUnmount     = "unmount"
	EmitWillSetRoot = "willSetRoot"
	EmitDidSetRoot  = "didSetRoot"
	EmitSwitchTab   = "switchTab"
)

// Outcome states checked by expect steps.
const (
	StateResolved  = "resolved"
	StateCancelled = "cancelled"
	StatePending   = "pending"
)

// Calls lists every operation a call step may name.
var Calls = []string{
	bridge.ActionPush, bridge.ActionPushLayout,
	bridge.ActionPresent, bridge.ActionPresentLayout,
	bridge.ActionShowModal, bridge.ActionShowModalLayout,
	bridge.ActionPop, bridge.ActionPopTo, bridge.ActionPopToRoot,
	bridge.ActionRedirectTo, bridge.ActionDismiss, bridge.ActionHideModal,
	bridge.ActionSwitchTab,
	bridge.ActionToggleMenu, bridge.ActionOpenMenu, bridge.ActionCloseMenu,
	CallSetRoot, CallSetResult, CallUnmount,
	CallCurrentTab, CallIsStackRoot, CallFind, CallSignalFirstRenderComplete,
}

// Emits lists every event an emit step may name.
var Emits = []string{
	EmitResult, EmitAppear, EmitDisappear, EmitUnmount,
	EmitWillSetRoot, EmitDidSetRoot, EmitSwitchTab,
}

// futureCalls are the calls whose outcome is a Future.
var futureCalls = []string{
	bridge.ActionPush, bridge.ActionPushLayout,
	bridge.ActionPresent, bridge.ActionPresentLayout,
	bridge.ActionShowModal, bridge.ActionShowModalLayout,
	CallSetRoot,
}

// sceneless calls do not need a scene.
var scenelessCalls = []string{CallSetRoot, CallFind}

var replyMethods = []string{
	wire.MethodDispatch, wire.MethodSetRoot, wire.MethodCurrentTab,
	wire.MethodIsStackRoot, wire.MethodFindSceneID,
	wire.MethodCurrentRoute, wire.MethodRouteGraph,
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a command with the action appears, with args
	// - "trace_order": the actions' first commands appear in order
	// - "trace_count": the action is sent exactly Count times
	Type string `yaml:"type"`

	// Action is a dispatch action or host method name.
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset of the command's arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or does not validate.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, r := range s.Intercept {
		if r.Action == "" {
			return fmt.Errorf("intercept[%d]: action is required", i)
		}
	}
	for i, r := range s.Replies {
		if !slices.Contains(replyMethods, r.Method) {
			return fmt.Errorf("replies[%d]: unknown method %q", i, r.Method)
		}
		if r.Action != "" && r.Method != wire.MethodDispatch {
			return fmt.Errorf("replies[%d]: action only applies to dispatch", i)
		}
	}

	aliases := make(map[string]string)
	for i, step := range s.Steps {
		if err := validateStep(i, step, aliases); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, aliases map[string]string) error {
	set := 0
	for _, v := range []string{step.Call, step.Emit, step.Expect} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of call, emit or expect is required", i)
	}
	if step.For != "" {
		if _, ok := aliases[step.For]; !ok {
			return fmt.Errorf("steps[%d]: for refers to unknown alias %q", i, step.For)
		}
	}

	switch step.Kind() {
	case "call":
		if !slices.Contains(Calls, step.Call) {
			return fmt.Errorf("steps[%d]: unknown call %q", i, step.Call)
		}
		if step.Scene == "" && !slices.Contains(scenelessCalls, step.Call) {
			return fmt.Errorf("steps[%d]: scene is required for %s", i, step.Call)
		}
		if step.Call == CallSetResult && step.ResultCode == nil {
			return fmt.Errorf("steps[%d]: result_code is required for setResult", i)
		}
		if step.As != "" {
			if _, dup := aliases[step.As]; dup {
				return fmt.Errorf("steps[%d]: alias %q already defined", i, step.As)
			}
			aliases[step.As] = step.Call
		}
	case "emit":
		if !slices.Contains(Emits, step.Emit) {
			return fmt.Errorf("steps[%d]: unknown event %q", i, step.Emit)
		}
		if step.Emit == EmitSwitchTab && step.Tabs == "" {
			return fmt.Errorf("steps[%d]: tabs is required for switchTab", i)
		}
	case "expect":
		call, ok := aliases[step.Expect]
		if !ok {
			return fmt.Errorf("steps[%d]: expect refers to unknown alias %q", i, step.Expect)
		}
		if slices.Contains(futureCalls, call) {
			switch step.State {
			case "", StateResolved, StateCancelled, StatePending:
			default:
				return fmt.Errorf("steps[%d]: unknown state %q", i, step.State)
			}
		} else if step.State != "" {
			return fmt.Errorf("steps[%d]: state only applies to calls that wait for a result", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
