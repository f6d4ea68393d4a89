package sensitive

import "regexp"

// absPath matches absolute POSIX paths with at least one directory and
// Windows drive paths, when they start a token (so URLs are left alone).
// Group 1 is the leading delimiter, group 2 the last segment.
var absPath = regexp.MustCompile(`(^|[\s"'(=,\[])(?:[A-Za-z]:\\|/)(?:[^\s/\\:"'()]+[/\\])+([^\s/\\:"'()]+)`)

// TrimPath reduces every absolute file path inside s to ***/<basename>/.
func TrimPath(s string) string {
	return absPath.ReplaceAllString(s, "${1}***/${2}/")
}

// TrimPaths applies TrimPath to every string inside v, recursing into maps
// and slices. v is not mutated.
func TrimPaths(v any) any {
	switch t := v.(type) {
	case string:
		return TrimPath(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = TrimPaths(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = TrimPaths(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = TrimPath(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = TrimPath(val)
		}
		return out
	default:
		return v
	}
}
