package server

// forbiddenFields are request keys that indicate raw content is riding along.
// The check API is metadata-only: prompts and completions must never reach it,
// so any of these keys anywhere in the request body is rejected outright.
var forbiddenFields = map[string]struct{}{
	"prompt":   {},
	"text":     {},
	"input":    {},
	"message":  {},
	"messages": {},
	"content":  {},
}

// containsForbiddenFields walks a decoded JSON value and reports whether any
// map key, at any depth, is a forbidden content field. Matching is
// case-insensitive on ASCII.
func containsForbiddenFields(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if _, bad := forbiddenFields[lowerASCII(k)]; bad {
				return true
			}
			if containsForbiddenFields(inner) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if containsForbiddenFields(item) {
				return true
			}
		}
	}
	return false
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
