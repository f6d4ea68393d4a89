// Package sensitive strips credential-like fields from payloads before they
// reach errors, logs or debug output.
package sensitive

import (
	"encoding/json"
	"reflect"
	"strings"
)

// DefaultKeys are always filtered; extra keys passed to NewFilter are added
// on top.
var DefaultKeys = []string{
	"password",
	"password_confirmation",
	"token",
	"access_token",
	"token_type",
	"verification_token",
	"api_key",
	"secret",
	"private_key",
	"authorization",
}

// Filter removes a fixed set of keys from arbitrarily nested values. Keys
// are compared case-insensitively. A Filter is immutable and safe for
// concurrent use.
type Filter struct {
	keys map[string]struct{}
}

func NewFilter(extra ...string) *Filter {
	f := &Filter{keys: make(map[string]struct{}, len(DefaultKeys)+len(extra))}
	for _, k := range DefaultKeys {
		f.keys[k] = struct{}{}
	}
	for _, k := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			f.keys[k] = struct{}{}
		}
	}
	return f
}

// IsSensitive reports whether key is filtered.
func (f *Filter) IsSensitive(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.keys[strings.ToLower(key)]
	return ok
}

// Keys returns the filtered key set in no particular order.
func (f *Filter) Keys() []string {
	out := make([]string, 0, len(f.keys))
	for k := range f.keys {
		out = append(out, k)
	}
	return out
}

// Apply returns a deep copy of v without sensitive keys. Objects drop the
// keys and recurse into values, arrays are mapped element-wise and scalars
// come back unchanged. Values that are neither JSON-shaped maps/slices nor
// scalars (structs, typed maps) are normalized through encoding/json first.
// v is never mutated. A nil Filter returns v as is.
func (f *Filter) Apply(v any) any {
	if f == nil {
		return v
	}
	return f.walk(v)
}

func (f *Filter) walk(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if f.IsSensitive(k) {
				continue
			}
			out[k] = f.walk(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = f.walk(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if !f.IsSensitive(k) {
				out[k] = val
			}
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = f.walk(val)
		}
		return out
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return t
	}

	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		generic, ok := normalize(v)
		if !ok {
			return nil
		}
		return f.walk(generic)
	}
	return v
}

// normalize converts v into the map[string]any / []any form produced by
// encoding/json.
func normalize(v any) (any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}
