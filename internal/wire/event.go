package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Event is one host emission decoded from the channel.
type Event struct {
	Name string         `json:"event"`
	Body map[string]any `json:"body,omitempty"`
}

// NewEvent builds an event with the given body.
func NewEvent(name string, body map[string]any) Event {
	return Event{Name: name, Body: body}
}

// String returns the string stored under key, or "" when absent or not a string.
func (e Event) String(key string) string {
	s, _ := e.Body[key].(string)
	return s
}

// Int returns the integer stored under key.
// JSON numbers decode as float64, so integral floats are accepted.
func (e Event) Int(key string) (int, bool) {
	v, ok := e.Body[key]
	if !ok || v == nil {
		return 0, false
	}
	n, err := ToInt(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Object returns the map stored under key, or nil.
func (e Event) Object(key string) map[string]any {
	m, _ := e.Body[key].(map[string]any)
	return m
}

// ToInt converts a decoded JSON number (or Go integer) to int.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("not an integer: %w", err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %w", err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported number type %T", v)
	}
}

// ParseTabIndex splits the "from-to" index carried by EventSwitchTab.
func ParseTabIndex(index string) (from, to int, err error) {
	parts := strings.SplitN(index, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed tab index %q", index)
	}
	from, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed tab index %q: %w", index, err)
	}
	to, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed tab index %q: %w", index, err)
	}
	return from, to, nil
}
