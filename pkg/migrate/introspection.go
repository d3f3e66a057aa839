package migrate

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/strata/pkg/entity"
)

// ChainState describes one registered chain.
type ChainState struct {
	Kind    string   `json:"kind"`
	Oldest  string   `json:"oldest"`
	Current string   `json:"current"`
	Steps   []string `json:"steps"`
}

// RegistryState exposes the registered chains for observability.
type RegistryState struct {
	Chains []ChainState `json:"chains"`
}

// State implements introspection.Introspectable.
func (r *Registry) State() any {
	state := RegistryState{}
	for _, k := range entity.All() {
		c, ok := r.chains[k]
		if !ok {
			continue
		}
		cs := ChainState{
			Kind:    k.Name(),
			Oldest:  c.Oldest().String(),
			Current: c.Current().String(),
		}
		for _, s := range c.Steps() {
			cs.Steps = append(cs.Steps, s.String())
		}
		state.Chains = append(state.Chains, cs)
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Registry) ComponentType() string {
	return "migration-registry"
}

var _ introspection.Introspectable = (*Registry)(nil)
var _ introspection.Component = (*Registry)(nil)
