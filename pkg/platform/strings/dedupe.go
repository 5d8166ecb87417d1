// Package strings provides string slice utilities for configuration parsing.
package strings

import "strings"

// DedupeAndTrim trims each element and drops empties and repeats, keeping
// the first occurrence's position. Broker lists and similar ordered config
// values pass through here so "a, a ,b" and "a,b" configure identically.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
