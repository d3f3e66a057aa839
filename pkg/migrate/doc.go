// Package migrate upgrades persisted records from any historical version to
// the current one.
//
// Each version of an entity is described by its own snapshot type. A Step is
// a typed function from one snapshot type to the next:
//
//	v1ToV2 := migrate.NewStep(version.MustParse("0.1.0"), version.MustParse("0.2.0"),
//		"rename name to title", func(ctx context.Context, in SnapshotV1) (SnapshotV2, error) {
//			return SnapshotV2{Title: in.Name}, nil
//		})
//
// A Chain orders the steps of one entity kind and is rejected at construction
// when they leave a gap, branch, or disagree on the snapshot type they hand
// over. Loading walks the chain one step at a time, always in increasing
// version order, and finishes with the conversion into the domain record.
// Saving always emits the current snapshot and version tag.
//
// The Registry binds every kind from package entity to exactly one chain and
// refuses to be built when a kind is missing.
package migrate
