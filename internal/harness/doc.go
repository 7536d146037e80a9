// Package harness provides conformance testing for the navigation bridge.
//
// A scenario scripts a conversation between a bridge and a host: the calls
// a scene makes, the events the host emits, and what each waiting call
// should end up with. The harness runs the script against a real
// bridge.Bridge wired to a testutil.FakeHost and records every command,
// event and outcome into a trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: present_returns_result
//	description: "What this scenario validates"
//	intercept:
//	  - action: present
//	    to: Paywall
//	replies:
//	  - method: dispatch
//	    action: pop
//	    value: false
//	steps:
//	  - call: present
//	    scene: s1
//	    module: Picker
//	    as: picker
//	  - emit: result
//	    scene: s2
//	    for: picker
//	    result_code: -1
//	    data: { picked: 3 }
//	  - expect: picker
//	    state: resolved
//	    data: { picked: 3 }
//	assertions:
//	  - type: trace_contains
//	    action: present
//	    args: { params: { moduleName: Picker } }
//
// Each step sets exactly one of call, emit or expect. "for" takes the
// request code (or root tag) from the command an earlier alias sent.
//
// # Assertion Types
//
//   - trace_contains: a command with the action was sent, with matching args
//   - trace_order: the actions were first sent in the specified order
//   - trace_count: the action was sent exactly N times
//
// Actions name dispatch actions (push, present, ...) or host methods
// (setRoot, setResult, ...).
//
// # Deterministic Testing
//
// Trace entries are stamped from a testutil.DeterministicClock and the
// harness waits for the bridge loop to drain after every step, so runs
// produce identical traces for golden comparison (see RunWithGolden).
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/present.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
//
// RunLive executes the same script against a real host over a channel;
// emit steps and reply rules are skipped there.
package harness
