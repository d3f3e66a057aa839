package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/version"
)

// DefaultFormat is the extension new documents are written with.
const DefaultFormat = ".toml"

// Repository implements core.Repository on the local filesystem.
// Each document is one file: <Path>/<collection>/<id><ext>.
type Repository struct {
	Path        string
	config      Config
	serializers map[string]Serializer

	mu            sync.RWMutex
	watcherActive bool
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path        string
	Format      string // extension used for writes, e.g. ".toml" (default), ".yaml", ".json"
	MustExist   bool
	ReadOnly    bool
	Strict      bool // JSON numbers decoded as json.Number
	Logger      *slog.Logger
	EventBuffer int
	Serializers map[string]Serializer // merged over DefaultSerializers

	// ErrorHandler receives runtime watcher failures (e.g. permission denied),
	// which are otherwise only logged.
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Format == "" {
		config.Format = DefaultFormat
	}
	if !strings.HasPrefix(config.Format, ".") {
		config.Format = "." + config.Format
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}

	serializers := DefaultSerializers(config.Strict)
	for ext, s := range config.Serializers {
		serializers[ext] = s
	}

	return &Repository{
		Path:        config.Path,
		config:      config,
		serializers: serializers,
	}
}

// Initialize ensures the root directory exists (or checks it in MustExist/ReadOnly mode).
func (r *Repository) Initialize(ctx context.Context) error {
	if _, ok := r.serializers[r.config.Format]; !ok {
		return fmt.Errorf("unsupported format %q", r.config.Format)
	}

	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("data path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("data path is not a directory: %s", r.Path)
		}
		return nil
	}

	if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// validateName rejects collection names and IDs that would escape their directory.
func validateName(kind, name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: empty or relative %s %q", core.ErrInvalidID, kind, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %s %q contains a path separator", core.ErrInvalidID, kind, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %s %q is hidden", core.ErrInvalidID, kind, name)
	}
	return nil
}

func (r *Repository) collectionDir(collection string) (string, error) {
	if err := validateName("collection", collection); err != nil {
		return "", err
	}
	return filepath.Join(r.Path, collection), nil
}

// Save serializes the document in the configured format and writes it atomically.
// Copies of the same document stored in other formats are removed afterwards.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := validateName("id", doc.ID); err != nil {
		return err
	}
	if doc.Version.IsZero() {
		return fmt.Errorf("%s: %w", doc.Key(), core.ErrMissingVersion)
	}
	dir, err := r.collectionDir(doc.Collection)
	if err != nil {
		return err
	}

	payload := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload[core.VersionKey] = doc.Version.String()

	data, err := r.serializers[r.config.Format].Encode(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", doc.Key(), err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	target := filepath.Join(dir, doc.ID+r.config.Format)
	if err := writeFileAtomic(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	for ext := range r.serializers {
		if ext == r.config.Format {
			continue
		}
		stale := filepath.Join(dir, doc.ID+ext)
		if err := os.Remove(stale); err == nil {
			r.config.Logger.Debug("removed document copy in previous format", "path", stale)
		}
	}

	r.config.Logger.Debug("document saved", "key", doc.Key(), "version", doc.Version.String())
	return nil
}

// Get reads a document, trying the configured format first.
func (r *Repository) Get(ctx context.Context, collection, id string) (core.Document, error) {
	if err := validateName("id", id); err != nil {
		return core.Document{}, err
	}
	dir, err := r.collectionDir(collection)
	if err != nil {
		return core.Document{}, err
	}

	for _, ext := range extensions(r.serializers, r.config.Format) {
		path := filepath.Join(dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return core.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		payload, err := r.serializers[ext].Decode(data)
		if err != nil {
			return core.Document{}, fmt.Errorf("%s/%s: %w", collection, id, err)
		}
		return toDocument(collection, id, payload)
	}

	return core.Document{}, fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
}

// toDocument splits the version tag off the decoded payload.
func toDocument(collection, id string, payload map[string]any) (core.Document, error) {
	doc := core.Document{Collection: collection, ID: id, Metadata: make(core.Metadata, len(payload))}

	raw, ok := payload[core.VersionKey]
	if !ok {
		return doc, fmt.Errorf("%s: %w", doc.Key(), core.ErrMissingVersion)
	}
	tag, ok := raw.(string)
	if !ok {
		return doc, fmt.Errorf("%s: version tag must be a string, got %T", doc.Key(), raw)
	}
	v, err := version.Parse(tag)
	if err != nil {
		return doc, fmt.Errorf("%s: %w", doc.Key(), err)
	}
	doc.Version = v

	for k, val := range payload {
		if k != core.VersionKey {
			doc.Metadata[k] = val
		}
	}
	return doc, nil
}

// List returns the sorted IDs stored in a collection. A missing collection is empty.
func (r *Repository) List(ctx context.Context, collection string) ([]string, error) {
	dir, err := r.collectionDir(collection)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() || isTempFile(e.Name()) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if _, ok := r.serializers[ext]; !ok {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListMatching returns the "<collection>/<id>" keys of every stored document
// matching a doublestar pattern, e.g. "sessions/*" or "**".
func (r *Repository) ListMatching(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	collections, err := r.collections()
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, c := range collections {
		ids, err := r.List(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			key := c + "/" + id
			if ok, _ := doublestar.Match(pattern, key); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (r *Repository) collections() ([]string, error) {
	entries, err := os.ReadDir(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && validateName("collection", e.Name()) == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Delete removes every stored copy of a document.
func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := validateName("id", id); err != nil {
		return err
	}
	dir, err := r.collectionDir(collection)
	if err != nil {
		return err
	}

	removed := false
	for ext := range r.serializers {
		err := os.Remove(filepath.Join(dir, id+ext))
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
		}
	}
	if !removed {
		return fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
	}
	return nil
}

// resolveKey maps an absolute file path back to its collection and ID.
func (r *Repository) resolveKey(path string) (collection, id string, err error) {
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("path %s is not a document", rel)
	}
	ext := filepath.Ext(parts[1])
	if _, ok := r.serializers[ext]; !ok {
		return "", "", fmt.Errorf("unsupported extension %q", ext)
	}
	return parts[0], strings.TrimSuffix(parts[1], ext), nil
}

var _ core.Repository = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
