package annot

import "github.com/goliatone/go-annotations/pkg/activity"

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	selector        Selector
	lineage         Lineage
	filter          TypeFilter
	buildLogger     BuildLogger
	logger          EvaluatorLogger
	evaluator       Evaluator
	predicateEngine string
	programCache    ProgramCache
	functions       *FunctionRegistry
	activityHooks   activity.Hooks
	activityChannel string
	activityActor   string
	activityTenant  string
	caches          *Caches
	namespace       string
	maxNodes        int
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{
		selector:    NearestAndOldest,
		buildLogger: noopBuildLogger{},
		logger:      noopEvaluatorLogger{},
		maxNodes:    DefaultMaxHierarchyNodes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.caches == nil {
		cfg.caches = NewCaches()
	}
	return cfg
}

// WithSelector sets the strategy that picks the canonical node of a type.
// Defaults to NearestAndOldest.
func WithSelector(selector Selector) Option {
	return func(cfg *engineConfig) {
		if selector == nil {
			cfg.selector = NearestAndOldest
			return
		}
		cfg.selector = selector
	}
}

// DefaultMaxHierarchyNodes bounds hierarchy builds unless WithMaxHierarchyNodes
// says otherwise.
const DefaultMaxHierarchyNodes = 10000

// WithMaxHierarchyNodes fails builds whose hierarchy would exceed n nodes with
// ErrHierarchyTooLarge. Zero or less removes the limit.
func WithMaxHierarchyNodes(n int) Option {
	return func(cfg *engineConfig) {
		if n < 0 {
			n = 0
		}
		cfg.maxNodes = n
	}
}

// WithLineage supplies the declaration hierarchy used by Composite.
func WithLineage(lineage Lineage) Option {
	return func(cfg *engineConfig) {
		cfg.lineage = lineage
	}
}

// WithTypeFilter excludes meta-annotation types for which filter returns false.
func WithTypeFilter(filter TypeFilter) Option {
	return func(cfg *engineConfig) {
		cfg.filter = filter
	}
}

// WithBuildLogger attaches a hierarchy build logger.
func WithBuildLogger(logger BuildLogger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.buildLogger = noopBuildLogger{}
			return
		}
		cfg.buildLogger = logger
	}
}

// WithEvaluatorLogger attaches an evaluator logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithEvaluator configures the predicate evaluator. Defaults to expr.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// WithPredicateEngine picks the built-in evaluator by name: PredicateExpr,
// PredicateCEL or PredicateJS. WithEvaluator takes precedence.
func WithPredicateEngine(name string) Option {
	return func(cfg *engineConfig) {
		cfg.predicateEngine = name
	}
}

// WithProgramCache registers a cache for compiled predicate programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *engineConfig) {
		cfg.programCache = cache
	}
}

// WithCaches shares caches between engines built on the same source,
// registry and lineage. Engines share hierarchies only when they use the same
// built-in selector and no type filter; others keep private entries unless
// WithCacheNamespace groups them.
func WithCaches(caches *Caches) Option {
	return func(cfg *engineConfig) {
		cfg.caches = caches
	}
}

// WithCacheNamespace places the engine's hierarchies and composites under name
// within its caches. Engines given the same name must choose canonical nodes
// the same way.
func WithCacheNamespace(name string) Option {
	return func(cfg *engineConfig) {
		cfg.namespace = name
	}
}

// WithActivityHooks attaches activity hooks notified of hierarchy builds and
// cache clears. Hooks are copied and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	compacted := hooks.Compact()
	return func(cfg *engineConfig) {
		cfg.activityHooks = compacted
	}
}

// WithActivityActor stamps actor and tenant ids onto emitted events.
func WithActivityActor(actorID, tenantID string) Option {
	return func(cfg *engineConfig) {
		cfg.activityActor = actorID
		cfg.activityTenant = tenantID
	}
}

// WithActivityChannel overrides the default "annotations" activity channel.
func WithActivityChannel(channel string) Option {
	return func(cfg *engineConfig) {
		cfg.activityChannel = channel
	}
}
