// Package persona holds the persisted shapes of persona definitions and
// their migration chain.
package persona

import (
	"github.com/google/uuid"

	"github.com/aretw0/strata/pkg/version"
)

var (
	// V010 is the legacy shape with an operator-chosen string id.
	V010 = version.MustParse("0.1.0")
	// V020 uses a canonical UUID id.
	V020 = version.MustParse("0.2.0")

	// Current is the version every persona is saved with.
	Current = V020
)

// Persona is the domain record used by the rest of the application.
type Persona struct {
	ID          uuid.UUID
	Name        string
	Description string
	Prompt      string
}

// StorageKey is the canonical id, or "" before one is assigned.
func (p Persona) StorageKey() string {
	if p.ID == uuid.Nil {
		return ""
	}
	return p.ID.String()
}

// SnapshotV010 is a persona as written by 0.1.0.
type SnapshotV010 struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// SnapshotV020 is a persona as written by 0.2.0.
type SnapshotV020 struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
}

func intoDomain(s SnapshotV020) (Persona, error) {
	return Persona(s), nil
}

func fromDomain(p Persona) SnapshotV020 {
	return SnapshotV020(p)
}
