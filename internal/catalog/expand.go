package catalog

import "strings"

// ExpandString replaces every Marker in s with username.
func ExpandString(s, username string) string {
	return strings.ReplaceAll(s, Marker, username)
}

// Expand substitutes username into every string reachable from v.
// Maps and slices are copied; values of other types are returned as is.
func Expand(v any, username string) any {
	switch t := v.(type) {
	case string:
		return ExpandString(t, username)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = ExpandString(s, username)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = Expand(it, username)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = ExpandString(s, username)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, it := range t {
			out[k] = Expand(it, username)
		}
		return out
	default:
		return v
	}
}
