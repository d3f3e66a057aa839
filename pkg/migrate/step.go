package migrate

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/version"
)

// Step is one version-to-version transformation of an entity snapshot.
//
// Steps are created with NewStep so that the source and target snapshot types
// are recorded; NewChain uses them to check that consecutive steps agree on
// the shape they hand over.
type Step struct {
	From        version.Version
	To          version.Version
	Description string

	in     reflect.Type
	out    reflect.Type
	decode func(core.Metadata) (any, error)
	apply  func(context.Context, any) (any, error)
}

// NewStep builds a Step from a typed transformation.
// fn must not mutate its input; it may consult read-only collaborators.
func NewStep[From, To any](from, to version.Version, description string, fn func(context.Context, From) (To, error)) Step {
	return Step{
		From:        from,
		To:          to,
		Description: description,
		in:          reflect.TypeFor[From](),
		out:         reflect.TypeFor[To](),
		decode: func(meta core.Metadata) (any, error) {
			return decodeSnapshot[From](meta)
		},
		apply: func(ctx context.Context, snapshot any) (any, error) {
			src, ok := snapshot.(From)
			if !ok {
				return nil, fmt.Errorf("expected %v snapshot, got %T", reflect.TypeFor[From](), snapshot)
			}
			return fn(ctx, src)
		},
	}
}

// CanMigrate reports whether the step applies to a document tagged v.
func (s Step) CanMigrate(v version.Version) bool {
	return v.Equal(s.From)
}

// Migrate applies the step to a snapshot of its From version.
// Any failure is returned as a *StepError.
func (s Step) Migrate(ctx context.Context, snapshot any) (any, error) {
	if s.apply == nil {
		return nil, s.fail(fmt.Errorf("step was not built with NewStep"))
	}
	out, err := s.apply(ctx, snapshot)
	if err != nil {
		return nil, s.fail(err)
	}
	return out, nil
}

func (s Step) fail(err error) *StepError {
	return &StepError{From: s.From, To: s.To, Description: s.Description, Err: err}
}

func (s Step) String() string {
	return fmt.Sprintf("%s -> %s: %s", s.From, s.To, s.Description)
}
