package openapi

import (
	"fmt"
	"regexp"
)

// componentRegistry assigns each metadata type a unique, sanitized component
// name and records its schema.
type componentRegistry struct {
	entries   map[string]*componentEntry
	usedNames map[string]struct{}
}

type componentEntry struct {
	name   string
	schema map[string]any
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		entries:   map[string]*componentEntry{},
		usedNames: map[string]struct{}{},
	}
}

// register stores node under a name derived from id and returns its $ref.
// Registering the same id twice returns the first reference.
func (r *componentRegistry) register(id string, node *schemaNode) string {
	if node == nil {
		return ""
	}
	if entry, ok := r.entries[id]; ok {
		return componentRef(entry.name)
	}
	name := r.uniqueName(id)
	r.entries[id] = &componentEntry{name: name, schema: node.inlineOpenAPI()}
	return componentRef(name)
}

func (r *componentRegistry) reference(id string) (string, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return "", false
	}
	return componentRef(entry.name), true
}

func componentRef(name string) string {
	return fmt.Sprintf("#/components/schemas/%s", name)
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.entries) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.entries))
	for _, entry := range r.entries {
		out[entry.name] = entry.schema
	}
	return out
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
