package fetch

import (
	"fmt"
	"strings"
)

// EscapeLiteral doubles single quotes in a SoQL string literal.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func quoted(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}

// Chunks splits items into groups of at most size, preserving order. Used
// to respect the batch-size ceilings the orchestrator applies: 100 dots,
// 20 phones, 10 officers, 10 addresses.
func Chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
		if size == 0 {
			return nil
		}
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// InPredicate builds a `field IN (...)` predicate for int64 values, used to
// batch dot-number lookups in groups of up to 100.
func InPredicate(field string, values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%s IN(%s)", field, strings.Join(parts, ","))
}

// OrEqualsPredicate builds `field='a' OR field='b' OR ...` for string
// values, used for phone/officer/address co-occurrence queries in groups
// of up to 20 phones or 10 officers/addresses.
func OrEqualsPredicate(field string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s=%s", field, quoted(v))
	}
	return strings.Join(parts, " OR ")
}

// OrUpperEqualsPredicate is OrEqualsPredicate but wraps field in upper(),
// used for case-upper-normalized officer-name matching.
func OrUpperEqualsPredicate(field string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("upper(%s)=%s", field, quoted(strings.ToUpper(v)))
	}
	return strings.Join(parts, " OR ")
}
