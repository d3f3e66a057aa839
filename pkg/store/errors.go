package store

import (
	"errors"
	"fmt"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/version"
)

// ErrKeyConflict is reported when a record cannot move to its canonical
// key because another document already occupies it.
var ErrKeyConflict = errors.New("canonical key already in use")

// LoadError reports a stored record that exists but could not be read or
// migrated. It matches core.ErrNotFound so callers that only distinguish
// "have it" from "don't" need no special case.
type LoadError struct {
	Kind    entity.Kind
	ID      string
	Version version.Version // zero when the tag itself could not be read
	Err     error
}

func newLoadError(kind entity.Kind, id string, v version.Version, err error) *LoadError {
	return &LoadError{Kind: kind, ID: id, Version: v, Err: err}
}

func (e *LoadError) Error() string {
	if e.Version.IsZero() {
		return fmt.Sprintf("load %s %q: %v", e.Kind.Name(), e.ID, e.Err)
	}
	return fmt.Sprintf("load %s %q (version %s): %v", e.Kind.Name(), e.ID, e.Version, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports true for core.ErrNotFound.
func (e *LoadError) Is(target error) bool {
	return target == core.ErrNotFound
}
