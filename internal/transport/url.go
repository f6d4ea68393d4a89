package transport

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// IsAbsolute reports whether endpoint carries a scheme.
func IsAbsolute(endpoint string) bool {
	u, err := url.Parse(endpoint)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// JoinURL returns endpoint unchanged when it is absolute, otherwise base and
// endpoint joined by exactly one slash.
func JoinURL(base, endpoint string) string {
	if IsAbsolute(endpoint) || base == "" {
		return endpoint
	}
	if endpoint == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// BuildURL joins base and endpoint and appends params as a query string.
// Slice values repeat the key; nil values are dropped. Existing query
// parameters on the endpoint are kept.
func BuildURL(base, endpoint string, params map[string]any) (string, error) {
	raw := JoinURL(base, endpoint)
	if len(params) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	q := u.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range queryValues(params[k]) {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func queryValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []int:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}
