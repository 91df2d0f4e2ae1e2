package annot

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Names every evaluator binds besides the attributes.
const (
	varNow         = "now"
	varArgs        = "args"
	varAttributes  = "attributes"
	varAnnotation  = "annotation"
	varDeclaration = "declaration"
	varCall        = "call"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isContextName(name string) bool {
	switch name {
	case varNow, varArgs, varAttributes, varAnnotation, varDeclaration, varCall:
		return true
	}
	return false
}

// valueKind is the evaluator view of a declared attribute type.
type valueKind int

const (
	kindAny valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindTime
	kindDuration
	kindMap
	kindList
)

func (k valueKind) String() string {
	switch k {
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindString:
		return "string"
	case kindTime:
		return "time"
	case kindDuration:
		return "duration"
	case kindMap:
		return "map"
	case kindList:
		return "list"
	default:
		return "any"
	}
}

// kindOf maps a declared type name onto a value kind and, for "[]elem"
// declarations, the element kind. Nested lists hold untyped elements.
func kindOf(declared string) (valueKind, valueKind) {
	declared = strings.TrimSpace(declared)
	if elem, ok := strings.CutPrefix(declared, "[]"); ok {
		kind, _ := kindOf(elem)
		if kind == kindList {
			kind = kindAny
		}
		return kindList, kind
	}
	switch declared {
	case "bool", "boolean":
		return kindBool, kindAny
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "integer":
		return kindInt, kindAny
	case "float32", "float64", "number", "double":
		return kindFloat, kindAny
	case "string":
		return kindString, kindAny
	case "time", "time.Time":
		return kindTime, kindAny
	case "duration", "time.Duration":
		return kindDuration, kindAny
	case "map", "object", "map[string]any":
		return kindMap, kindAny
	default:
		return kindAny, kindAny
	}
}

// attributeBinding is one attribute bound as an evaluator variable.
type attributeBinding struct {
	name string
	kind valueKind
	elem valueKind
}

// evalShape lists the attribute variables of one evaluator environment. A
// dynamic shape declares none and resolves referenced names at run time.
type evalShape struct {
	bindings []attributeBinding
	dynamic  bool
}

// shapeOf derives the environment for t, or for the keys of attrs when t is
// nil. Names that are not identifiers, context names or reserved are skipped.
func shapeOf(t *Type, attrs AttributeReader, reserved func(string) bool) evalShape {
	skip := func(name string) bool {
		return !identifierPattern.MatchString(name) || isContextName(name) || (reserved != nil && reserved(name))
	}
	switch {
	case t != nil:
		bindings := make([]attributeBinding, 0, len(t.Attributes))
		for _, attr := range t.Attributes {
			if skip(attr.Name) {
				continue
			}
			kind, elem := kindOf(attr.Type)
			bindings = append(bindings, attributeBinding{name: attr.Name, kind: kind, elem: elem})
		}
		return evalShape{bindings: bindings}
	case attrs != nil:
		values, ok := attrs.(AttributeMap)
		if !ok {
			return evalShape{dynamic: true}
		}
		names := make([]string, 0, len(values))
		for name := range values {
			if !skip(name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		bindings := make([]attributeBinding, len(names))
		for i, name := range names {
			bindings[i] = attributeBinding{name: name}
		}
		return evalShape{bindings: bindings}
	default:
		return evalShape{dynamic: true}
	}
}

// key identifies the shape in program caches.
func (s evalShape) key() string {
	if s.dynamic {
		return "dynamic"
	}
	parts := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		parts[i] = b.name + ":" + b.kind.String()
		if b.kind == kindList {
			parts[i] += ":" + b.elem.String()
		}
	}
	return strings.Join(parts, ",")
}

func programKey(engine string, shape evalShape, expression string) string {
	return engine + "|" + shape.key() + "|" + expression
}

// attribute reads and coerces one bound attribute.
func (ctx EvalContext) attribute(b attributeBinding) (any, error) {
	if ctx.Attributes == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, b.name)
	}
	value, err := ctx.Attributes.AttributeValue(b.name)
	if err != nil {
		return nil, err
	}
	return coerceValue(b, value)
}

// attributeMap reads every attribute for the "attributes" variable. Any
// failing attribute fails the read.
func (ctx EvalContext) attributeMap() (map[string]any, error) {
	if values, ok := ctx.Attributes.(AttributeMap); ok && ctx.Type == nil {
		out := make(map[string]any, len(values))
		for name, value := range values {
			out[name] = value
		}
		return out, nil
	}
	if ctx.Type == nil || ctx.Attributes == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(ctx.Type.Attributes))
	for _, attr := range ctx.Type.Attributes {
		value, err := ctx.Attributes.AttributeValue(attr.Name)
		if err != nil {
			return nil, err
		}
		out[attr.Name] = value
	}
	return out, nil
}

// coerceValue converts value to the Go type evaluators expect for the
// binding's kind. nil becomes the zero value of scalar kinds.
func coerceValue(b attributeBinding, value any) (any, error) {
	out, ok := coerceKind(b.kind, b.elem, value)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T, declared %s", ErrAccess, b.name, value, b.kind)
	}
	return out, nil
}

func coerceKind(kind, elem valueKind, value any) (any, bool) {
	if kind == kindAny {
		return value, true
	}
	if value == nil {
		return zeroOf(kind), true
	}
	rv := reflect.ValueOf(value)
	switch kind {
	case kindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), true
		}
	case kindInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			// decoded JSON numbers
			if f := rv.Float(); f == math.Trunc(f) {
				return int(f), true
			}
		}
	case kindFloat:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), true
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		}
	case kindString:
		if rv.Kind() == reflect.String {
			return rv.String(), true
		}
	case kindTime:
		if t, ok := value.(time.Time); ok {
			return t, true
		}
	case kindDuration:
		if d, ok := value.(time.Duration); ok {
			return d, true
		}
	case kindMap:
		if m, ok := value.(map[string]any); ok {
			return m, true
		}
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().Interface()
			}
			return out, true
		}
	case kindList:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			item, ok := coerceKind(elem, kindAny, rv.Index(i).Interface())
			if !ok {
				return nil, false
			}
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func zeroOf(kind valueKind) any {
	switch kind {
	case kindBool:
		return false
	case kindInt:
		return 0
	case kindFloat:
		return float64(0)
	case kindString:
		return ""
	case kindTime:
		return time.Time{}
	case kindDuration:
		return time.Duration(0)
	case kindMap:
		return map[string]any{}
	case kindList:
		return []any{}
	default:
		return nil
	}
}
