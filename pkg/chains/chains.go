package chains

import (
	"errors"
	"fmt"

	"github.com/poh-analytics/pohx/pkg/config"
)

// ChainID identifies a chain the protocol is deployed on.
type ChainID string

const (
	Ethereum ChainID = "ethereum"
	Gnosis   ChainID = "gnosis"
)

// ErrUnknownChain is returned by Lookup for ids that are not registered.
var ErrUnknownChain = errors.New("unknown chain")

// Features toggles per-deployment behaviour of the analytics queries.
type Features struct {
	// TracksCredits marks subgraphs that index seer credit buys/usage and the
	// per-day credit users entity.
	TracksCredits bool `json:"tracksCredits"`
	// LegacyRequests marks deployments carrying humanities migrated from v1;
	// those are excluded from the expired count.
	LegacyRequests bool `json:"legacyRequests"`
	// OutTransfers marks subgraphs exposing the outTransfers collection, used to
	// recount transferred-out registrations when the global counter is zero.
	OutTransfers bool `json:"outTransfers"`
}

// Chain is the static description of one deployment.
type Chain struct {
	ID          ChainID  `json:"id"`
	Name        string   `json:"name"`
	SubgraphURL string   `json:"subgraphUrl"`
	Features    Features `json:"features"`
}

// Registry maps chain ids to their configuration. It is never mutated after NewRegistry.
type Registry struct {
	order  []ChainID
	chains map[ChainID]Chain
}

// NewRegistry builds the registry for the two supported deployments from config.
func NewRegistry(cfg config.SubgraphConfig) *Registry {
	return NewRegistryFrom(
		Chain{
			ID:          Ethereum,
			Name:        "Ethereum",
			SubgraphURL: cfg.EthereumURL,
			Features:    Features{LegacyRequests: true, OutTransfers: true},
		},
		Chain{
			ID:          Gnosis,
			Name:        "Gnosis Chain",
			SubgraphURL: cfg.GnosisURL,
			Features:    Features{TracksCredits: true},
		},
	)
}

// NewRegistryFrom builds a registry from explicit entries. Later duplicates replace earlier ones.
func NewRegistryFrom(entries ...Chain) *Registry {
	r := &Registry{chains: make(map[ChainID]Chain, len(entries))}
	for _, c := range entries {
		if _, ok := r.chains[c.ID]; !ok {
			r.order = append(r.order, c.ID)
		}
		r.chains[c.ID] = c
	}
	return r
}

// Lookup returns the chain registered under id.
func (r *Registry) Lookup(id ChainID) (Chain, error) {
	c, ok := r.chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %q", ErrUnknownChain, id)
	}
	return c, nil
}

// All returns every registered chain in registration order.
func (r *Registry) All() []Chain {
	out := make([]Chain, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.chains[id])
	}
	return out
}
