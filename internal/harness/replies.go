package harness

import (
	"errors"

	"github.com/roach88/navbridge/internal/testutil"
	"github.com/roach88/navbridge/internal/wire"
)

// replyPolicies turns reply rules into one FakeHost policy per method.
// Rules are tried in order; the first whose action matches answers, and
// unmatched calls fall back to the host's default.
func replyPolicies(rules []ReplyRule) map[string]testutil.ReplyPolicy {
	byMethod := make(map[string][]ReplyRule)
	for _, r := range rules {
		byMethod[r.Method] = append(byMethod[r.Method], r)
	}

	policies := make(map[string]testutil.ReplyPolicy, len(byMethod))
	for method, rs := range byMethod {
		fallback := testutil.DefaultReply(method)
		policies[method] = func(args map[string]any) (any, error) {
			action, _ := args[wire.KeyAction].(string)
			for _, r := range rs {
				if r.Action != "" && r.Action != action {
					continue
				}
				if r.Error != "" {
					return nil, errors.New(r.Error)
				}
				return r.Value, nil
			}
			return fallback(args)
		}
	}
	return policies
}
