package config

import (
	"fmt"

	"github.com/roach88/navbridge/internal/bridge"
)

// BuildInterceptor compiles the block rules into a bridge interceptor, or
// returns nil when there are none.
func (c *Config) BuildInterceptor() bridge.Interceptor {
	rules := c.Interceptor.Block
	if len(rules) == 0 {
		return nil
	}
	return bridge.SyncInterceptor(func(action string, info bridge.InterceptInfo) bool {
		for _, r := range rules {
			if r.matches(action, info) {
				return true
			}
		}
		return false
	})
}

func (r BlockRule) matches(action string, info bridge.InterceptInfo) bool {
	if r.Action != action {
		return false
	}
	if r.From != "" && !sameValue(r.From, info.From) {
		return false
	}
	if r.To != "" && !sameValue(r.To, info.To) {
		return false
	}
	return true
}

// sameValue compares a configured string with a command value, which may
// be a module name or a tab index.
func sameValue(want string, got any) bool {
	if got == nil {
		return false
	}
	return want == fmt.Sprint(got)
}
