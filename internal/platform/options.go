package platform

import (
	"log/slog"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
)

// options holds the internal configuration for a Strata runtime.
type options struct {
	repository   core.Repository
	logger       *slog.Logger
	format       string
	mustExist    bool
	readOnly     bool
	strict       bool
	watch        bool
	devSafety    bool
	eventBuffer  int
	errorHandler func(error)
	serializers  map[string]fs.Serializer
}

// Option defines a functional option for configuring Strata.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:      slog.Default(),
		format:      fs.DefaultFormat,
		devSafety:   true,
		serializers: make(map[string]fs.Serializer),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the file format new documents are written in
// (".toml", ".yaml" or ".json"). Existing documents are read in any format.
func WithFormat(ext string) Option {
	return func(o *options) {
		o.format = ext
	}
}

// WithSerializer registers a custom serializer for a specific extension.
func WithSerializer(ext string, s fs.Serializer) Option {
	return func(o *options) {
		o.serializers[ext] = s
	}
}

// WithMustExist ensures the data directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithLogger sets the logger for the runtime and every component it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRepository allows injecting a custom storage adapter (e.g. memory).
// If provided, the default filesystem adapter will be skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithWatch keeps the persona catalog in sync with changes made by other
// processes. It requires a repository that implements core.Watchable.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithEventBuffer allows specifying the size of the watcher event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithStrict enables strict number decoding for JSON documents.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied), which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithReadOnly enables read-only mode. Writes return core.ErrReadOnly,
// the data directory is never created and the dev sandbox is bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`: by default writes are redirected to a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}
