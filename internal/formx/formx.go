// Package formx reshapes form payloads before they are sent.
package formx

import "sort"

// Spec is applied in a fixed order: Rename, then Add, then Remove.
type Spec struct {
	// Rename maps an input key to its outgoing name.
	Rename map[string]string
	// Add sets literal values, overwriting existing keys.
	Add map[string]any
	// Remove lists keys dropped last.
	Remove []string
}

// IsZero reports whether s changes nothing.
func (s Spec) IsZero() bool {
	return len(s.Rename) == 0 && len(s.Add) == 0 && len(s.Remove) == 0
}

// Apply returns a new map; input is never modified. Keys not named in spec
// pass through. When two keys are renamed onto the same name the one whose
// original key sorts last wins.
func Apply(input map[string]any, spec Spec) map[string]any {
	out := make(map[string]any, len(input)+len(spec.Add))

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, renamed := spec.Rename[k]; renamed {
			continue
		}
		out[k] = input[k]
	}
	for _, k := range keys {
		if to, renamed := spec.Rename[k]; renamed {
			out[to] = input[k]
		}
	}

	for k, v := range spec.Add {
		out[k] = v
	}
	for _, k := range spec.Remove {
		delete(out, k)
	}
	return out
}

// ApplyAny applies spec when v is a map[string]any and returns v unchanged
// otherwise.
func ApplyAny(v any, spec Spec) any {
	m, ok := v.(map[string]any)
	if !ok || spec.IsZero() {
		return v
	}
	return Apply(m, spec)
}
