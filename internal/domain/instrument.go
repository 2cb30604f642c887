package domain

import "strings"

// InstrumentKey normalizes an instrument name for case-insensitive
// identity. Two names refer to the same holding iff their keys are equal.
func InstrumentKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IDPredicate reports whether a string looks like a storage record id.
// Each storage backend supplies its own.
type IDPredicate func(s string) bool
