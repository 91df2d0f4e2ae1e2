package annot

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Registry is an in-memory TypeRegistry and RelationRegistry. It is safe for
// concurrent use. Registered types are copied and never change afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[TypeID]*Type
}

// NewRegistry returns a registry holding types.
func NewRegistry(types ...*Type) (*Registry, error) {
	r := &Registry{types: make(map[TypeID]*Type, len(types))}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegister registers types and panics on the first failure. Intended for
// package level fixtures.
func (r *Registry) MustRegister(types ...*Type) *Registry {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register stores a copy of t. Attribute owners are set to t.ID. Empty IDs,
// duplicate IDs and duplicate attribute names are rejected.
func (r *Registry) Register(t *Type) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("%w: type id is empty", ErrUnknownType)
	}
	seen := make(map[string]struct{}, len(t.Attributes))
	for _, attr := range t.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("annot: type %s declares an attribute without name", t.ID)
		}
		if _, dup := seen[attr.Name]; dup {
			return fmt.Errorf("annot: type %s declares attribute %q twice", t.ID, attr.Name)
		}
		seen[attr.Name] = struct{}{}
	}

	copied := &Type{
		ID:         t.ID,
		Attributes: slices.Clone(t.Attributes),
		Relations:  slices.Clone(t.Relations),
		Meta:       slices.Clone(t.Meta),
	}
	for i := range copied.Attributes {
		copied.Attributes[i].Owner = t.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = make(map[TypeID]*Type)
	}
	if _, exists := r.types[t.ID]; exists {
		return fmt.Errorf("annot: type %s already registered", t.ID)
	}
	r.types[t.ID] = copied
	return nil
}

// LookupType implements TypeRegistry.
func (r *Registry) LookupType(id TypeID) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// Relations implements RelationRegistry.
func (r *Registry) Relations(id TypeID) []Relation {
	t, ok := r.LookupType(id)
	if !ok {
		return nil
	}
	return slices.Clone(t.Relations)
}

// Types returns the registered types sorted by ID.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Validate checks the relations of every registered type and reports every
// malformed one.
func (r *Registry) Validate() error {
	var result *multierror.Error
	for _, t := range r.Types() {
		if _, err := validateRelations(r, t); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
