package annot

import (
	"time"

	"go.uber.org/zap"
)

// BuildEvent describes one hierarchy build.
type BuildEvent struct {
	HierarchyID string
	Declaration string
	Resolved    bool
	Nodes       int
	Duration    time.Duration
	Err         error
}

// BuildLogger records hierarchy builds.
type BuildLogger interface {
	LogBuild(BuildEvent)
}

// BuildLoggerFunc adapts a function to BuildLogger.
type BuildLoggerFunc func(BuildEvent)

// LogBuild implements BuildLogger.
func (f BuildLoggerFunc) LogBuild(event BuildEvent) {
	if f != nil {
		f(event)
	}
}

type noopBuildLogger struct{}

func (noopBuildLogger) LogBuild(BuildEvent) {}

// ZapBuildLogger logs builds at debug level and failed builds at warn level.
func ZapBuildLogger(logger *zap.Logger) BuildLogger {
	if logger == nil {
		return noopBuildLogger{}
	}
	return BuildLoggerFunc(func(event BuildEvent) {
		fields := []zap.Field{
			zap.String("declaration", event.Declaration),
			zap.Bool("resolved", event.Resolved),
			zap.Int("nodes", event.Nodes),
			zap.Duration("duration", event.Duration),
		}
		if event.HierarchyID != "" {
			fields = append(fields, zap.String("hierarchy_id", event.HierarchyID))
		}
		if event.Err != nil {
			logger.Warn("annot: hierarchy build failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("annot: hierarchy built", fields...)
	})
}

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// ZapEvaluatorLogger logs evaluations at debug level and failures at warn level.
func ZapEvaluatorLogger(logger *zap.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		fields := []zap.Field{
			zap.String("engine", event.Engine),
			zap.String("expr", event.Expr),
			zap.String("scope", event.Scope),
			zap.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			logger.Warn("annot: evaluation failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("annot: evaluated", fields...)
	})
}
