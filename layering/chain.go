// Package layering orders declarations by precedence and merges the attribute
// maps they contribute, strongest first.
package layering

import (
	"slices"
)

// Level identifies the precedence of a declaration within a composed
// hierarchy. Higher levels override lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelInterface represents implemented interface declarations (weakest).
	LevelInterface
	// LevelAncestor represents the superclass chain.
	LevelAncestor
	// LevelDeclaring represents the declaration being queried (strongest).
	LevelDeclaring
)

func (l Level) String() string {
	switch l {
	case LevelInterface:
		return "interface"
	case LevelAncestor:
		return "ancestor"
	case LevelDeclaring:
		return "declaring"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch value {
	case "interface", "INTERFACE":
		return LevelInterface
	case "ancestor", "ANCESTOR", "superclass":
		return LevelAncestor
	case "declaring", "DECLARING", "self":
		return LevelDeclaring
	default:
		return LevelUnknown
	}
}

// Entry places one value at a precedence level. Key deduplicates entries.
type Entry[T any] struct {
	Key   string
	Level Level
	Value T
}

// Chain is the ordered layering sequence from strongest to weakest.
type Chain[T any] struct {
	ordered []Entry[T]
}

// NewChain constructs a chain and deduplicates entries by Key, keeping the
// first (strongest) occurrence. Stronger levels are placed before weaker ones
// while the relative ordering of peers is kept.
func NewChain[T any](entries ...Entry[T]) Chain[T] {
	filtered := make([]Entry[T], 0, len(entries))
	for _, entry := range entries {
		if entry.Level == LevelUnknown {
			continue
		}
		filtered = append(filtered, entry)
	}

	slices.SortStableFunc(filtered, func(a, b Entry[T]) int {
		if a.Level == b.Level {
			return 0
		}
		if a.Level > b.Level {
			return -1
		}
		return 1
	})

	seen := make(map[string]struct{}, len(filtered))
	out := filtered[:0]
	for _, entry := range filtered {
		if _, exists := seen[entry.Key]; exists {
			continue
		}
		seen[entry.Key] = struct{}{}
		out = append(out, entry)
	}
	return Chain[T]{ordered: out}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain[T]) Ordered() []Entry[T] {
	out := make([]Entry[T], len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Values returns the entry values from strongest to weakest.
func (c Chain[T]) Values() []T {
	out := make([]T, len(c.ordered))
	for i := range c.ordered {
		out[i] = c.ordered[i].Value
	}
	return out
}

// Len returns the number of entries in the chain.
func (c Chain[T]) Len() int {
	return len(c.ordered)
}

// Strongest returns the first entry in the chain (zero entry if empty).
func (c Chain[T]) Strongest() Entry[T] {
	if len(c.ordered) == 0 {
		return Entry[T]{}
	}
	return c.ordered[0]
}

// Weakest returns the final entry in the chain (zero entry if empty).
func (c Chain[T]) Weakest() Entry[T] {
	if len(c.ordered) == 0 {
		return Entry[T]{}
	}
	return c.ordered[len(c.ordered)-1]
}
