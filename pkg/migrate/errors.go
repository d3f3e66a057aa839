package migrate

import (
	"errors"
	"fmt"

	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/version"
)

var (
	// ErrUnresolvableVersion is returned when a document's tag has no step
	// leading away from it and is not the current version.
	ErrUnresolvableVersion = errors.New("unresolvable version")

	// ErrStepFailed marks a failure inside a step's transformation.
	ErrStepFailed = errors.New("migration step failed")

	// ErrAmbiguousRegistration is returned while building chains or registries
	// whose steps do not form a single gap-free path.
	ErrAmbiguousRegistration = errors.New("ambiguous migration registration")
)

// VersionError reports a document tag that no registered step starts from.
type VersionError struct {
	Kind    entity.Kind
	Version version.Version
	Current version.Version
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s version %s has no migration path to %s: %v",
		e.Kind.Name(), e.Version, e.Current, ErrUnresolvableVersion)
}

func (e *VersionError) Unwrap() error {
	return ErrUnresolvableVersion
}

// StepError identifies the step whose transformation failed and wraps the cause.
type StepError struct {
	From        version.Version
	To          version.Version
	Description string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s -> %s (%s): %v", e.From, e.To, e.Description, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

// RegistrationError describes why a chain or registry was rejected.
type RegistrationError struct {
	Kind   entity.Kind
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind.Name(), e.Reason, ErrAmbiguousRegistration)
}

func (e *RegistrationError) Unwrap() error {
	return ErrAmbiguousRegistration
}

func registrationErrorf(kind entity.Kind, format string, args ...any) error {
	return &RegistrationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
