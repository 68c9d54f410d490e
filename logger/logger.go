// Package logger configures slog for the process and carries logging context
// (subsystem, operation id, wait target, extra attributes) through
// context.Context so that call sites can write one-line log statements.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amp-labs/amp-wait/contexts"
	"github.com/amp-labs/amp-wait/envutil"
	"github.com/amp-labs/amp-wait/lazy"
	"github.com/amp-labs/amp-wait/shutdown"
)

// subsystem names the part of the system generating logs (e.g. "waitfor").
// Stored through atomic.Value because reads happen on every log line.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes ConfigureLoggingWithOptions calls, which touch the
// process-wide slog and log defaults.
var configMutex sync.Mutex //nolint:gochecknoglobals

// contextKey is a private type for the values this package stores in contexts.
type contextKey string

const (
	muteKey      contextKey = "mute"
	subsystemKey contextKey = "subsystem"
	operationKey contextKey = "operation_id"
	targetKey    contextKey = "target"
	valuesKey    contextKey = "loggerValues"
)

// Fatal logs an error message, runs the shutdown hooks, and exits the
// application.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)

	shutdown.Shutdown()

	time.Sleep(time.Second)

	os.Exit(1)
}

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer
	// ExtraHandler, when set, receives every record in addition to Output.
	// Used to bridge records to OpenTelemetry (telemetry.LogHandler).
	ExtraHandler slog.Handler
}

// ConfigureLoggingWithOptions installs the configured handler chain as the
// slog default and redirects the legacy log package into it. It returns the
// default logger. Concurrent calls are serialized.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	var handler slog.Handler

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	} else {
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	}

	if opts.ExtraHandler != nil {
		handler = teeHandler{handler, opts.ExtraHandler}
	}

	// Unpack attributes carried by annotated errors (see AnnotateError).
	handler = &slogErrorLogger{inner: handler}

	logger := slog.New(handler)

	slog.SetDefault(logger)

	// The old log package has no levels, so third-party code writing through
	// it gets pinned to one.
	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// Option is a functional option for configuring logging via ConfigureLogging.
type Option func(*Options)

// WithExtraHandler duplicates every record to h in addition to the
// configured output.
func WithExtraHandler(h slog.Handler) Option {
	return func(o *Options) {
		o.ExtraHandler = h
	}
}

// ErrInvalidLogOutput is returned when an invalid log output destination is specified.
var ErrInvalidLogOutput = errors.New("invalid log output")

// ConfigureLogging configures logging for the application from the
// environment (LOG_JSON, LOG_LEVEL, LEGACY_LOG_LEVEL, LOG_OUTPUT), then
// applies any options on top. It returns the default logger.
func ConfigureLogging(ctx context.Context, app string, opts ...Option) *slog.Logger {
	logJSON := envutil.Bool(ctx, "LOG_JSON", envutil.Default(false)).ValueOrFatal()

	minLevel := envutil.SlogLevel(ctx, "LOG_LEVEL", envutil.Default(slog.LevelInfo)).ValueOrFatal()

	legacyLevel := envutil.SlogLevel(ctx, "LEGACY_LOG_LEVEL", envutil.Default(slog.LevelInfo)).ValueOrFatal()

	output := envutil.Map(envutil.String(ctx, "LOG_OUTPUT"), func(outName string) (*os.File, error) {
		switch outName {
		case "stdout":
			return os.Stdout, nil
		case "stderr":
			return os.Stderr, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, outName)
		}
	}).WithDefault(os.Stdout).ValueOrFatal()

	options := Options{
		Subsystem:   app,
		JSON:        logJSON,
		MinLevel:    minLevel,
		LegacyLevel: legacyLevel,
		Output:      output,
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options)
}

// WithMuted adds a muted flag to the context. A muted context suppresses all
// log output under it. Useful for high-frequency paths like readiness probes
// whose routine logging would drown everything else.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, muteKey, muted)
}

func isMuted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	muted, ok := ctx.Value(muteKey).(bool)

	return ok && muted
}

// contextString reads a string stored under key, tolerating nil contexts.
func contextString(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}

	val, ok := ctx.Value(key).(string)

	return val, ok
}

// WithSubsystem overrides, for this context, the default subsystem installed
// by ConfigureLogging.
func WithSubsystem(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, subsystemKey, name)
}

// GetSubsystem returns the subsystem for this context: the override when one
// was attached, otherwise the default from ConfigureLogging.
func GetSubsystem(ctx context.Context) string {
	if sub, ok := contextString(ctx, subsystemKey); ok {
		return sub
	}

	if val, ok := subsystem.Load().(string); ok {
		return val
	}

	return ""
}

// WithOperation adds a wait operation ID to the context. Every log line
// produced under this context will carry it, which makes it possible to
// correlate the attempts of one wait among many.
func WithOperation(ctx context.Context, operationId string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, operationKey, operationId)
}

// GetOperation returns the wait operation ID from the context, with false
// when none was attached.
func GetOperation(ctx context.Context) (string, bool) {
	return contextString(ctx, operationKey)
}

// WithTarget adds the identity of the thing being waited on (for example
// "default/sklearn-predictor" or a URL) to the context.
func WithTarget(ctx context.Context, target string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, targetKey, target)
}

// GetTarget returns the wait target from the context, with false when none
// was attached.
func GetTarget(ctx context.Context) (string, bool) {
	return contextString(ctx, targetKey)
}

// hostname resolves to the pod name under Kubernetes and the machine name
// elsewhere.
// nolint:gochecknoglobals
var hostname = lazy.New[string](func() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return h
})

// GetPodName returns the pod name (or hostname if not running in k8s).
func GetPodName() string {
	return hostname.Get()
}

// nullHandler discards every record. It backs the muted logging feature.
type nullHandler struct{}

func (n *nullHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (n *nullHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n *nullHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n *nullHandler) WithGroup(_ string) slog.Handler {
	return n
}

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals

// getBaseLogger returns the default logger preloaded with everything the
// context knows: subsystem, pod, operation ID, target, and With values.
func getBaseLogger(ctx context.Context) *slog.Logger {
	// Muted contexts still get a working logger, just one that outputs nothing.
	if isMuted(ctx) {
		return nullLogger
	}

	logger := slog.Default().With(
		"subsystem", GetSubsystem(ctx),
		"pod", hostname.Get())

	if operationId, found := GetOperation(ctx); found {
		logger = logger.With("operation_id", operationId)
	}

	if target, found := GetTarget(ctx); found {
		logger = logger.With("target", target)
	}

	if vals := getValues(ctx); vals != nil {
		logger = logger.With(vals...)
	}

	return logger
}

// Get returns a logger. If a context is provided, any logging context embedded
// in it (subsystem, operation ID, target, values added via With) is applied to
// the returned logger.
//
//nolint:contextcheck
func Get(ctx ...context.Context) *slog.Logger {
	return getBaseLogger(contexts.EnsureContext(ctx...))
}

// With returns a new context whose loggers carry the given key-value pairs in
// addition to anything already attached. The accumulated values are copied,
// so sibling contexts derived from the same parent stay independent.
func With(ctx context.Context, values ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(values) == 0 {
		return ctx
	}

	prev := getValues(ctx)
	vals := make([]any, 0, len(prev)+len(values))
	vals = append(vals, prev...)
	vals = append(vals, values...)

	return context.WithValue(ctx, valuesKey, vals)
}

func getValues(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	vals, ok := ctx.Value(valuesKey).([]any)
	if !ok {
		return nil
	}

	return vals
}
