package layering

import "reflect"

// DefaultFunc reports whether value is the default of the attribute named name.
type DefaultFunc func(name string, value any) bool

// MergeAttributes composes attribute maps ordered from strongest to weakest.
// For every name the strongest non-default value wins; when every layer holds
// the default, the strongest layer's value is kept. Values are deep copied.
func MergeAttributes(layers []map[string]any, isDefault DefaultFunc) map[string]any {
	merged := make(map[string]any)
	if len(layers) == 0 {
		return merged
	}
	decided := make(map[string]bool)
	for _, layer := range layers {
		for name, value := range layer {
			if decided[name] {
				continue
			}
			if _, seen := merged[name]; !seen {
				merged[name] = Clone(value)
			}
			if isDefault == nil || !isDefault(name, value) {
				merged[name] = Clone(value)
				decided[name] = true
			}
		}
	}
	return merged
}

// Clone returns a deep copy of value. Maps, slices, arrays, pointers and
// exported struct fields are copied; everything else is returned as is.
func Clone[T any](value T) T {
	rv := reflect.ValueOf(&value).Elem()
	var zero T
	cloned := cloneValue(rv)
	if !cloned.IsValid() {
		return zero
	}
	out := reflect.New(rv.Type()).Elem()
	out.Set(cloned)
	if typed, ok := out.Interface().(T); ok {
		return typed
	}
	return zero
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
