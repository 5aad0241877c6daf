package search

import "strings"

// The filter-query DSL mirrors the backend's Lucene-like syntax:
// field:value terms combined with AND/OR, parenthesized groups, and
// [start TO end] ranges.

// Term renders a single field:value term, quoting values that
// contain whitespace.
func Term(field, value string) string {
	if strings.ContainsAny(value, " \t") {
		value = `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	return field + ":" + value
}

// And joins clauses with AND, dropping empty ones.
func And(clauses ...string) string {
	return join(" AND ", clauses)
}

// Or joins clauses with OR, dropping empty ones.
func Or(clauses ...string) string {
	return join(" OR ", clauses)
}

// Group wraps a clause in parentheses. An empty clause stays empty.
func Group(clause string) string {
	if clause == "" {
		return ""
	}
	return "(" + clause + ")"
}

// Range renders an inclusive [start TO end] range term.
func Range(field, start, end string) string {
	if start == "" {
		start = "*"
	}
	if end == "" {
		end = "*"
	}
	return field + ":[" + start + " TO " + end + "]"
}

func join(sep string, clauses []string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, sep)
}
