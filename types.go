package annot

import (
	"fmt"
	"strings"
	"time"
)

// TypeID identifies a metadata type.
type TypeID string

// Declaration is anything metadata can be attached to: a type, a method, a
// field. Keys must be stable because hierarchies are cached by key.
type Declaration interface {
	DeclarationKey() string
}

// Element is a Declaration identified by its key alone.
type Element string

// DeclarationKey implements Declaration.
func (e Element) DeclarationKey() string {
	return string(e)
}

// Attribute describes one declared attribute of a metadata type.
type Attribute struct {
	Name    string
	Type    string
	Default any
	Owner   TypeID
}

// RelationKind enumerates the supported attribute relations.
type RelationKind int

const (
	// RelationUnknown guards against zero-value relations.
	RelationUnknown RelationKind = iota
	// AliasFor makes the target take the source value when the source is set.
	AliasFor
	// ForceAliasFor makes the target always take the source value.
	ForceAliasFor
	// MirrorFor pairs two attributes that must carry equal explicit values.
	MirrorFor
)

func (k RelationKind) String() string {
	switch k {
	case AliasFor:
		return "alias_for"
	case ForceAliasFor:
		return "force_alias_for"
	case MirrorFor:
		return "mirror_for"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RelationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RelationKind) UnmarshalText(text []byte) error {
	*k = ParseRelationKind(string(text))
	return nil
}

// ParseRelationKind converts a string representation into a RelationKind.
// Returns RelationUnknown for unrecognised values.
func ParseRelationKind(value string) RelationKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "alias_for", "aliasfor", "alias":
		return AliasFor
	case "force_alias_for", "forcealiasfor", "force_alias":
		return ForceAliasFor
	case "mirror_for", "mirrorfor", "mirror":
		return MirrorFor
	default:
		return RelationUnknown
	}
}

// Relation declares that attribute From of the owning type relates to
// Attribute on Target. An empty Target refers to the owning type.
type Relation struct {
	From      string
	Target    TypeID
	Attribute string
	Kind      RelationKind
}

func (r Relation) targetOf(owner TypeID) TypeID {
	if r.Target == "" {
		return owner
	}
	return r.Target
}

func (r Relation) String() string {
	return fmt.Sprintf("%s %s %s.%s", r.From, r.Kind, r.Target, r.Attribute)
}

// Type describes a metadata type: its attributes in declaration order, the
// relations declared on them and the meta-annotations attached to the type
// itself. A Type must not be mutated once registered.
type Type struct {
	ID         TypeID
	Attributes []Attribute
	Relations  []Relation
	Meta       []Instance
}

// Attribute returns the descriptor named name.
func (t *Type) Attribute(name string) (Attribute, bool) {
	if idx := t.attributeIndex(name); idx >= 0 {
		return t.Attributes[idx], true
	}
	return Attribute{}, false
}

func (t *Type) attributeIndex(name string) int {
	if t == nil {
		return -1
	}
	for i := range t.Attributes {
		if t.Attributes[i].Name == name {
			return i
		}
	}
	return -1
}

// Instance is one attached metadata record. AttributeValue returns the value
// set for name or the attribute default when unset.
type Instance interface {
	AnnotationType() TypeID
	AttributeValue(name string) (any, error)
}

// DeclarationSource reads metadata off declarations. Implementations must be
// pure and repeatable: the engine caches what they return.
type DeclarationSource interface {
	// Annotations returns the instances attached directly to decl.
	Annotations(decl Declaration) []Instance
	// MetaAnnotations returns the instances attached to the type of inst.
	MetaAnnotations(inst Instance) []Instance
}

// TypeRegistry resolves type descriptors.
type TypeRegistry interface {
	LookupType(id TypeID) (*Type, bool)
}

// RelationRegistry returns the relations declared by a type.
type RelationRegistry interface {
	Relations(id TypeID) []Relation
}

// Lineage exposes the declaration hierarchy a declaration belongs to, e.g. the
// methods an overriding method overrides.
type Lineage interface {
	// Superclasses returns the ancestor chain, nearest first.
	Superclasses(decl Declaration) []Declaration
	// Interfaces returns the implemented interface declarations.
	Interfaces(decl Declaration) []Declaration
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened attribute descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Types    []TypeID
}

// SchemaGenerator renders metadata types into a schema document. All
// implementations MUST be safe for concurrent use and return an empty document
// when no types are given.
type SchemaGenerator interface {
	Generate(types ...*Type) (SchemaDocument, error)
}

// AttributeReader supplies attribute values to evaluators. *View and
// AttributeMap implement it.
type AttributeReader interface {
	AttributeValue(name string) (any, error)
}

// AttributeMap is an AttributeReader over fixed values.
type AttributeMap map[string]any

// AttributeValue implements AttributeReader.
func (m AttributeMap) AttributeValue(name string) (any, error) {
	value, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	return value, nil
}

// EvalContext carries the inputs of a predicate evaluation. Attributes are
// read only when an expression references them, so a failing attribute fails
// only the expressions that use it. When Type is set every declared attribute
// is bound as a variable typed after its declaration; without a Type the keys
// of an AttributeMap are bound untyped.
type EvalContext struct {
	Declaration string
	Type        *Type
	Attributes  AttributeReader
	Args        map[string]any
	Now         *time.Time
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx EvalContext) typeID() TypeID {
	if ctx.Type == nil {
		return ""
	}
	return ctx.Type.ID
}

func (ctx EvalContext) label() string {
	if ctx.Type == nil {
		return "unknown"
	}
	if ctx.Declaration == "" {
		return string(ctx.Type.ID)
	}
	return ctx.Declaration + "@" + string(ctx.Type.ID)
}

// Evaluator executes expressions against resolved attributes.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption func(*compileConfig)

type compileConfig struct {
	typ *Type
}

// CompileFor checks the expression against the attributes declared by t at
// compile time. The rule then only accepts contexts of type t; contexts
// without a Type are evaluated as t.
func CompileFor(t *Type) CompileOption {
	return func(cfg *compileConfig) {
		cfg.typ = t
	}
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// bind prepares ctx for a rule compiled with cfg.
func (cfg compileConfig) bind(ctx EvalContext) (EvalContext, error) {
	if cfg.typ == nil {
		return ctx, nil
	}
	if ctx.Type == nil {
		ctx.Type = cfg.typ
		return ctx, nil
	}
	if ctx.Type.ID != cfg.typ.ID {
		return ctx, fmt.Errorf("rule compiled for @%s cannot evaluate @%s", cfg.typ.ID, ctx.Type.ID)
	}
	return ctx, nil
}
