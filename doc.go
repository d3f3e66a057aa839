// Package strata is the composition root for versioned record storage.
//
// Every persisted record carries a version tag. Reads walk the record
// through a registered chain of migration steps until it reaches the current
// shape, so the rest of an application only ever sees current records, no
// matter which release wrote them.
//
// Features:
//
//   - **Closed kind set**: every entity kind must register a chain or
//     startup fails.
//   - **Checked chains**: gaps, overlaps and type mismatches between steps
//     are rejected at registration.
//   - **Failure isolation**: a record that cannot be migrated reads as
//     missing and never aborts a listing.
//   - **Default adapter (FS)**: one TOML, YAML or JSON file per record.
//
// Usage:
//
//	rt, err := strata.New(ctx, "./data", strata.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	s, err := rt.Sessions.Get(ctx, "s1")
//	reports, err := rt.Upgrade(ctx, nil, false)
package strata
