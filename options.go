package s3vkit

import "time"

// DefaultCleanupTimeout bounds the delete issued by RunScoped after the
// caller's context is done.
const DefaultCleanupTimeout = 30 * time.Second

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	callTimeout      time.Duration
	cleanupTimeout   time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the structured logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, a NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCallTimeout bounds every individual store call. Zero disables the
// per-call deadline and relies on the caller's context alone.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		o.callTimeout = d
	}
}

// WithCleanupTimeout bounds the cleanup delete issued by RunScoped.
// Non-positive values select DefaultCleanupTimeout.
func WithCleanupTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = DefaultCleanupTimeout
		}
		o.cleanupTimeout = d
	}
}
