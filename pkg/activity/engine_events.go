package activity

import (
	"slices"
	"time"
)

const (
	// VerbHierarchyBuilt is emitted after a hierarchy was built.
	VerbHierarchyBuilt = "hierarchy.built"
	// VerbHierarchyFailed is emitted when a hierarchy build fails.
	VerbHierarchyFailed = "hierarchy.failed"
	// VerbCachesCleared is emitted after every cache tier was cleared.
	VerbCachesCleared = "caches.cleared"
)

// HierarchyEventInput describes a hierarchy build.
type HierarchyEventInput struct {
	HierarchyID string
	Declaration string
	Resolved    bool
	Types       []string
	Nodes       int
	Duration    time.Duration
	Err         error
	Metadata    map[string]any
}

// BuildHierarchyEvent returns a hierarchy.built event, or hierarchy.failed
// when input.Err is set.
func BuildHierarchyEvent(input HierarchyEventInput) Event {
	event := Event{
		Verb:        VerbHierarchyBuilt,
		HierarchyID: input.HierarchyID,
		Declaration: input.Declaration,
		Resolved:    input.Resolved,
		Types:       slices.Clone(input.Types),
		Nodes:       input.Nodes,
		Duration:    input.Duration,
		Metadata:    input.Metadata,
	}
	if input.Err != nil {
		event.Verb = VerbHierarchyFailed
		event.Err = input.Err.Error()
	}
	return event
}

// BuildCachesClearedEvent returns a caches.cleared event for the generation
// the caches moved to.
func BuildCachesClearedEvent(generation uint64) Event {
	return Event{Verb: VerbCachesCleared, Generation: generation}
}
