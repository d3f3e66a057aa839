// Package core holds the raw document model and the storage port.
package core

import "github.com/aretw0/strata/pkg/version"

// Metadata represents the versioned key-value fields of a document.
type Metadata map[string]any

// VersionKey is the document field that carries the version tag on disk.
const VersionKey = "version"

// Document is a raw persisted record of one collection.
// Version is declared by the document itself and is never inferred from
// the shape of Metadata.
type Document struct {
	Collection string
	ID         string
	Version    version.Version
	Metadata   Metadata
}

// Key returns the "<collection>/<id>" path used by watch patterns and logs.
func (d Document) Key() string {
	return d.Collection + "/" + d.ID
}

// EventType represents the type of change in a collection.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored document.
type Event struct {
	Type       EventType
	Collection string
	ID         string
	Timestamp  int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.Collection + "/" + e.ID
}
