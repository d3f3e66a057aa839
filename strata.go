package strata

import (
	"context"
	"log/slog"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/entity/persona"
	"github.com/aretw0/strata/pkg/entity/session"
	"github.com/aretw0/strata/pkg/store"
)

// --- Types ---

// Runtime is a wired set of stores over one repository.
type Runtime = platform.Runtime

// Persona is the current persona record.
type Persona = persona.Persona

// Session is the current session record.
type Session = session.Session

// Kind identifies a migratable record type.
type Kind = entity.Kind

// Report summarizes an upgrade run over one kind.
type Report = store.Report

// LoadError reports a stored record that could not be migrated.
type LoadError = store.LoadError

// Common errors.
var (
	ErrNotFound       = core.ErrNotFound
	ErrReadOnly       = core.ErrReadOnly
	ErrMissingVersion = core.ErrMissingVersion
)

// --- Configuration ---

// Option defines a functional option for configuring Strata.
type Option = platform.Option

// WithFormat sets the file format new documents are written in.
func WithFormat(ext string) Option {
	return platform.WithFormat(ext)
}

// WithSerializer registers a custom serializer for a file extension.
func WithSerializer(ext string, s fs.Serializer) Option {
	return platform.WithSerializer(ext, s)
}

// WithMustExist ensures the data directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the runtime.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithWatch keeps the persona catalog in sync with external changes.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithEventBuffer sets the size of the watcher event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithStrict enables strict number decoding for JSON documents.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the `go run` sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// --- Factory ---

// New opens the data root at path.
func New(ctx context.Context, path string, opts ...Option) (*Runtime, error) {
	return platform.New(ctx, path, opts...)
}

// Init prepares the storage at path and returns the raw repository.
func Init(ctx context.Context, path string, opts ...Option) (core.Repository, error) {
	return platform.Init(ctx, path, opts...)
}

// --- Safety & Utils ---

// ResolvePath determines the actual data path based on sandbox rules.
func ResolvePath(userPath string, sandbox bool) string {
	return platform.ResolvePath(userPath, sandbox)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards from startDir for a data root.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
