package blocks

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Props accessors tolerate the loose shapes that arrive from JSON: numbers
// are float64, lists are []any.

func Str(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func StrOr(props map[string]any, key, fallback string) string {
	if v := Str(props, key); v != "" {
		return v
	}
	return fallback
}

func IntOr(props map[string]any, key string, fallback int) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func BoolOr(props map[string]any, key string, fallback bool) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return fallback
}

// Items returns the object entries of a list prop, skipping anything that is
// not an object.
func Items(props map[string]any, key string) []map[string]any {
	raw, _ := props[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func Strings(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SafeURL returns raw when it is a relative, fragment, http(s) or mailto URL,
// and "#" otherwise.
func SafeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "#"
	}
	u, err := url.Parse(s)
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return s
	}
	return "#"
}
