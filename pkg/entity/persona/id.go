package persona

import "github.com/google/uuid"

// Namespace seeds name-derived persona ids. It must never change: instances
// migrating the same legacy data independently rely on it to agree on ids.
var Namespace = uuid.MustParse("5a0f3c52-7d1e-4b8a-9e61-2c4f8d7b1a90")

// IDFromName derives the canonical id of a persona from its name.
// The same name always yields the same id.
func IDFromName(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

// IsCanonicalID reports whether s already is a canonical (UUID-shaped) id.
func IsCanonicalID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
