package migrate

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/strata/pkg/core"
)

// decodeSnapshot converts raw document fields into the typed snapshot S.
// Fields unknown to S are ignored.
func decodeSnapshot[S any](meta core.Metadata) (S, error) {
	var snap S

	data, err := json.Marshal(meta)
	if err != nil {
		return snap, fmt.Errorf("metadata marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode %T snapshot: %w", snap, err)
	}
	return snap, nil
}

// encodeSnapshot flattens a snapshot back into document fields.
func encodeSnapshot(snap any) (core.Metadata, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode %T snapshot: %w", snap, err)
	}

	var meta core.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to convert %T snapshot to map: %w", snap, err)
	}
	delete(meta, core.VersionKey)
	return meta, nil
}
