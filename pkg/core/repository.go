package core

import "context"

// Repository defines the contract for storing and retrieving raw documents.
// Implementations own durability and atomicity; callers only see whole
// documents. Adhering to this interface keeps the migration layer
// independent of the storage mechanism.
type Repository interface {
	// Save persists a document. It creates if not exists, or updates if it does.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document by collection and ID.
	// It returns an error wrapping ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns the IDs of every document in a collection, sorted.
	List(ctx context.Context, collection string) ([]string, error)

	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error

	// Initialize ensures the underlying storage is ready (e.g., create directories).
	Initialize(ctx context.Context) error
}

// Watchable defines an interface for repositories that can report changes.
type Watchable interface {
	// Watch emits an event for each change whose "<collection>/<id>" key
	// matches pattern (doublestar syntax). The channel closes when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
