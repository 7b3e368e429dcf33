// Package strings provides string list helpers shared by configuration code.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and drops empty and repeated ones.
// Order of first occurrence is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{" kafka-1:9092", "kafka-2:9092", "kafka-1:9092", ""})
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// SplitList splits a comma separated value such as "a, b,,a" into its
// distinct non-empty parts.
func SplitList(raw string) []string {
	return DedupeAndTrim(strings.Split(raw, ","))
}
