package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const defaultDetail = "Error"

// Detail normalizes a backend error body into one human-readable string.
// Plain text is returned verbatim. JSON bodies yield their detail or message
// field; otherwise field-keyed validation errors are flattened into
// "field: first message" pairs in key order, joined by "; ".
func Detail(body []byte, isJSON bool) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return defaultDetail
	}
	if !isJSON && !json.Valid(trimmed) {
		return string(trimmed)
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(trimmed)
	}
	if d := detailOf(decoded); d != "" {
		return d
	}
	return defaultDetail
}

func detailOf(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		for _, item := range typed {
			if d := detailOf(item); d != "" {
				return d
			}
		}
		return ""
	case map[string]any:
		for _, key := range []string{"detail", "message", "error"} {
			if d := detailOf(typed[key]); d != "" {
				return d
			}
		}
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			msg := detailOf(typed[k])
			if msg == "" {
				continue
			}
			if k == "non_field_errors" {
				parts = append(parts, msg)
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, msg))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}
