package transport

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultHeaders are the lowest layer of every request.
func DefaultHeaders() map[string]any {
	return map[string]any{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// MergeHeaders flattens layers left to right; later layers override earlier
// ones (names compared canonically). Slice values are joined with ",", nil
// values are dropped and a nil value in a later layer removes the header.
func MergeHeaders(layers ...map[string]any) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for name, v := range layer {
			key := http.CanonicalHeaderKey(name)
			value, ok := headerValue(v)
			if !ok {
				delete(out, key)
				continue
			}
			out[key] = value
		}
	}
	return out
}

// StringHeaders lifts a string map into a header layer.
func StringHeaders(h map[string]string) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func headerValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case []string:
		return strings.Join(t, ","), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				parts = append(parts, fmt.Sprint(item))
			}
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(t), true
	}
}
