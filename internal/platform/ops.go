package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
)

// Init prepares the storage at uri and returns the configured repository.
// The uri is a directory path for the filesystem adapter; it is ignored
// when a repository is injected with WithRepository.
func Init(ctx context.Context, uri string, opts ...Option) (core.Repository, error) {
	return initRepository(ctx, uri, buildOptions(opts))
}

func initRepository(ctx context.Context, uri string, o *options) (core.Repository, error) {
	repo := o.repository
	if repo == nil {
		repo = initFS(uri, o)
	}
	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// initFS builds the filesystem adapter, applying the dev sandbox.
func initFS(path string, o *options) *fs.Repository {
	sandbox := IsDevRun() && o.devSafety && !o.readOnly
	resolved := ResolvePath(path, sandbox)

	switch {
	case sandbox:
		o.logger.Warn("running in SAFE MODE (dev sandbox enabled)", "original_path", path, "resolved_path", resolved)
	case IsDevRun() && o.readOnly:
		o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
	case IsDevRun():
		o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
	}

	return fs.NewRepository(fs.Config{
		Path:         resolved,
		Format:       o.format,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Strict:       o.strict,
		Logger:       o.logger,
		EventBuffer:  o.eventBuffer,
		Serializers:  o.serializers,
		ErrorHandler: o.errorHandler,
	})
}

// describe returns a short label for the repository in logs.
func describe(repo core.Repository) string {
	if r, ok := repo.(*fs.Repository); ok {
		return fmt.Sprintf("fs:%s", r.Path)
	}
	return fmt.Sprintf("%T", repo)
}
