// Package entity enumerates the persisted record kinds that can be migrated.
//
// The set is closed. Adding a kind means adding a constant below, a case in
// every switch of this file, and a chain in the registry built by
// internal/platform; migrate.NewRegistry refuses to start when a kind from
// All has no chain.
package entity

import (
	"fmt"
	"strings"
)

// Kind identifies a migratable record type.
type Kind int

const (
	KindPersona Kind = iota
	KindSession

	kindCount // keep last
)

// All returns every kind in declaration order.
func All() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Name returns the human-readable name of the kind.
func (k Kind) Name() string {
	switch k {
	case KindPersona:
		return "Persona"
	case KindSession:
		return "Session"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Collection returns the storage collection the kind's documents live in.
func (k Kind) Collection() string {
	switch k {
	case KindPersona:
		return "personas"
	case KindSession:
		return "sessions"
	default:
		return ""
	}
}

func (k Kind) String() string {
	return k.Name()
}

// ParseKind resolves a kind from its name or collection, ignoring case.
func ParseKind(s string) (Kind, error) {
	for _, k := range All() {
		if strings.EqualFold(s, k.Name()) || strings.EqualFold(s, k.Collection()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}
