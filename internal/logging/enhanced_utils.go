package logging

import (
	"context"
	"time"
)

// EnhancedLogger wraps the base Logger with component-scoped convenience
// methods used by the catalog, search, and image-bytes components.
type EnhancedLogger struct {
	Logger
	component string
}

// NewEnhancedLogger creates an enhanced logger for a component.
func NewEnhancedLogger(component string) *EnhancedLogger {
	baseLogger := NewLogger(INFO)
	return &EnhancedLogger{
		Logger:    baseLogger.WithComponent(component),
		component: component,
	}
}

// WithContext creates a logger carrying the trace ID found in ctx.
func (l *EnhancedLogger) WithContext(ctx context.Context) *EnhancedLogger {
	traceID := GetTraceID(ctx)
	return &EnhancedLogger{
		Logger:    l.Logger.WithTraceID(traceID),
		component: l.component,
	}
}

// WithError logs err, if non-nil, and returns the logger unchanged for
// chaining.
func (l *EnhancedLogger) WithError(err error) *EnhancedLogger {
	if err == nil {
		return l
	}
	l.Error("error occurred", "error", err.Error())
	return l
}

// LogOperation logs the start and completion of fn, including duration.
func (l *EnhancedLogger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	l.Info("starting operation", "operation", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Error("operation failed",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return err
	}

	l.Info("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// LogSlowOperation logs an operation that ran longer than expected.
func (l *EnhancedLogger) LogSlowOperation(operation string, duration, expected time.Duration) {
	l.Warn("slow operation detected",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"expected_ms", expected.Milliseconds(),
		"slowdown_factor", float64(duration)/float64(expected),
	)
}

// Component logger instances, one per Tivoli component that logs.
var (
	ServerLogger     = NewEnhancedLogger("server")
	CatalogLogger    = NewEnhancedLogger("catalogstore")
	SearchLogger     = NewEnhancedLogger("search")
	TagLogger        = NewEnhancedLogger("tagmutation")
	ImageBytesLogger = NewEnhancedLogger("imagebytes")
)

// GetComponentLogger returns an enhanced logger for a specific component.
func GetComponentLogger(component string) *EnhancedLogger {
	return NewEnhancedLogger(component)
}
