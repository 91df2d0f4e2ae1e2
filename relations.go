package annot

import (
	"slices"

	"github.com/hashicorp/go-multierror"
)

// declaredRelations returns the relations declared by t, preferring the
// RelationRegistry when types implements one.
func declaredRelations(types TypeRegistry, t *Type) []Relation {
	if registry, ok := types.(RelationRegistry); ok {
		return registry.Relations(t.ID)
	}
	return t.Relations
}

// validateRelations checks every relation declared by t and returns them in
// the declaration order of their source attributes. All malformed relations
// are reported together.
func validateRelations(types TypeRegistry, t *Type) ([]Relation, error) {
	declared := declaredRelations(types, t)
	var result *multierror.Error
	valid := make([]Relation, 0, len(declared))

	for _, rel := range declared {
		target := rel.targetOf(t.ID)
		fail := func(reason string) {
			result = multierror.Append(result, &ConstructionError{
				Type:            t.ID,
				Attribute:       rel.From,
				Target:          target,
				TargetAttribute: rel.Attribute,
				Reason:          reason,
			})
		}

		if rel.Kind == RelationUnknown || rel.Kind > MirrorFor {
			fail("unknown relation kind")
			continue
		}
		source, ok := t.Attribute(rel.From)
		if !ok {
			fail("source attribute is not declared")
			continue
		}
		targetType := t
		if target != t.ID {
			targetType, ok = types.LookupType(target)
			if !ok || targetType == nil {
				fail("target type is not registered")
				continue
			}
		}
		linked, ok := targetType.Attribute(rel.Attribute)
		if !ok {
			fail("target attribute is not declared")
			continue
		}
		if target == t.ID && rel.From == rel.Attribute {
			fail("attribute cannot relate to itself")
			continue
		}
		if source.Type != linked.Type {
			fail("declared types differ: " + source.Type + " != " + linked.Type)
			continue
		}
		if rel.Kind == MirrorFor && !mirroredBack(types, targetType, rel.Attribute, t.ID, rel.From) {
			fail("mirror is not declared on both sides")
			continue
		}
		valid = append(valid, rel)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(valid, func(a, b Relation) int {
		return t.attributeIndex(a.From) - t.attributeIndex(b.From)
	})
	return valid, nil
}

func mirroredBack(types TypeRegistry, t *Type, from string, owner TypeID, attribute string) bool {
	for _, rel := range declaredRelations(types, t) {
		if rel.Kind == MirrorFor && rel.From == from && rel.targetOf(t.ID) == owner && rel.Attribute == attribute {
			return true
		}
	}
	return false
}
