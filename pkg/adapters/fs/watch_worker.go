package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/strata/pkg/core"
)

// Watch reports document changes whose "<collection>/<id>" key matches pattern.
// The watcher runs under a supervisor that restarts it on failure; the returned
// channel is closed once ctx is cancelled and the watcher has stopped.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if _, err := os.Stat(r.Path); err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", r.Path, err)
	}

	events := make(chan core.Event, r.config.EventBuffer)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(r, pattern, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   30 * time.Second,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("strata-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		close(events)
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sup.Stop(stopCtx)
	}, lifecycle.WithErrorHandler(r.reportWatchError))

	return events, nil
}

func (r *Repository) reportWatchError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("watcher failure", "error", err)
}

type watchWorker struct {
	*worker.BaseWorker
	repo    *Repository
	pattern string
	events  chan<- core.Event
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newWatchWorker(repo *Repository, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.addTree(watcher); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// addTree watches the root and every collection directory below it.
func (w *watchWorker) addTree(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(w.repo.Path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.repo.Path, err)
	}
	collections, err := w.repo.collections()
	if err != nil {
		return err
	}
	for _, c := range collections {
		if err := watcher.Add(filepath.Join(w.repo.Path, c)); err != nil {
			return fmt.Errorf("failed to watch collection %s: %w", c, err)
		}
	}
	return nil
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.repo.config.Logger.Error("fsnotify error", "error", wErr)
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(wErr)
			}
		}
	}
}

func (w *watchWorker) handle(ctx context.Context, event fsnotify.Event) {
	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if isTempFile(event.Name) {
		return
	}

	// New collection directories are picked up as they appear.
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.repo.Path) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.repo.config.Logger.Warn("failed to watch new collection", "path", event.Name, "error", err)
			}
			return
		}
	}

	eType := mapEventType(event)
	if eType == "" {
		return
	}

	collection, id, err := w.repo.resolveKey(event.Name)
	if err != nil {
		w.repo.config.Logger.Debug("ignoring event", "path", event.Name, "reason", err)
		return
	}
	if ok, _ := doublestar.Match(w.pattern, collection+"/"+id); !ok {
		return
	}

	select {
	case w.events <- core.Event{
		Type:       eType,
		Collection: collection,
		ID:         id,
		Timestamp:  time.Now().Unix(),
	}:
	case <-ctx.Done():
	}
}

// mapEventType treats renames as deletes: atomic writes surface as a CREATE
// of the target, so the source name is what disappears.
func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}
