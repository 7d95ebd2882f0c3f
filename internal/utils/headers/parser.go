package headers

import (
	"strings"
)

// ParseHeaders converts repeated "Key: Value" flag values into a header map.
// Entries without a colon or with an empty key are dropped.
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		key, value, found := strings.Cut(hdr, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		m[key] = strings.TrimSpace(value)
	}
	return m
}
