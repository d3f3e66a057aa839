package persona

import (
	"context"

	"github.com/google/uuid"

	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/migrate"
)

// Chain returns the migration chain for personas.
func Chain() *migrate.Chain[Persona, SnapshotV020] {
	return migrate.MustChain(migrate.Definition[Persona, SnapshotV020]{
		Kind:    entity.KindPersona,
		Current: Current,
		Steps: []migrate.Step{
			migrate.NewStep(V010, V020, "upgrade persona id to uuid", upgradeID),
		},
		IntoDomain: intoDomain,
		FromDomain: fromDomain,
	})
}

// upgradeID keeps ids that already parse as UUIDs and derives the rest from the name.
func upgradeID(_ context.Context, in SnapshotV010) (SnapshotV020, error) {
	id, err := uuid.Parse(in.ID)
	if err != nil {
		id = IDFromName(in.Name)
	}
	return SnapshotV020{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Prompt:      in.Prompt,
	}, nil
}
