package activity

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Object types events are attached to.
const (
	ObjectHierarchy = "hierarchy"
	ObjectCaches    = "caches"
)

// Event is one engine occurrence: a hierarchy build, a failed build or a
// cache clear. Hierarchy events are identified by HierarchyID, falling back
// to Declaration for failed builds; cache events by Generation.
type Event struct {
	Verb        string
	Channel     string
	ActorID     string
	TenantID    string
	HierarchyID string
	Declaration string
	Types       []string
	Resolved    bool
	Nodes       int
	Generation  uint64
	Duration    time.Duration
	Err         string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ObjectType reports what the event is about.
func (e Event) ObjectType() string {
	switch e.Verb {
	case "":
		return ""
	case VerbCachesCleared:
		return ObjectCaches
	default:
		return ObjectHierarchy
	}
}

// ObjectID identifies the object the event is about.
func (e Event) ObjectID() string {
	switch e.ObjectType() {
	case ObjectCaches:
		return fmt.Sprintf("generation-%d", e.Generation)
	case ObjectHierarchy:
		if e.HierarchyID != "" {
			return e.HierarchyID
		}
		return e.Declaration
	default:
		return ""
	}
}

// Valid reports whether the event names a verb and an object.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectID() != ""
}

// Fields flattens the event into the key/value shape activity stores keep.
// Engine fields win over Metadata entries of the same name.
func (e Event) Fields() map[string]any {
	fields := make(map[string]any, len(e.Metadata)+6)
	maps.Copy(fields, e.Metadata)
	switch e.ObjectType() {
	case ObjectCaches:
		fields["generation"] = e.Generation
	case ObjectHierarchy:
		if e.Declaration != "" {
			fields["declaration"] = e.Declaration
		}
		fields["resolved"] = e.Resolved
		fields["nodes"] = e.Nodes
		if len(e.Types) > 0 {
			fields["types"] = slices.Clone(e.Types)
		}
	}
	if e.Duration > 0 {
		fields["duration_ms"] = e.Duration.Milliseconds()
	}
	if e.Err != "" {
		fields["error"] = e.Err
	}
	return fields
}

// Normalize trims identifiers, sorts and dedupes Types, copies Metadata and
// stamps OccurredAt when unset.
func Normalize(event Event) Event {
	n := event
	n.Verb = strings.TrimSpace(event.Verb)
	n.Channel = strings.TrimSpace(event.Channel)
	n.ActorID = strings.TrimSpace(event.ActorID)
	n.TenantID = strings.TrimSpace(event.TenantID)
	n.HierarchyID = strings.TrimSpace(event.HierarchyID)
	n.Declaration = strings.TrimSpace(event.Declaration)
	n.Types = normalizeTypes(event.Types)
	if n.Duration < 0 {
		n.Duration = 0
	}
	if len(event.Metadata) > 0 {
		n.Metadata = maps.Clone(event.Metadata)
	} else {
		n.Metadata = nil
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	return n
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
