package chains_test

import (
	"testing"

	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := chains.NewRegistry(config.SubgraphConfig{
		EthereumURL: "http://eth.local",
		GnosisURL:   "http://gno.local",
	})

	eth, err := reg.Lookup(chains.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, "http://eth.local", eth.SubgraphURL)
	assert.True(t, eth.Features.OutTransfers)
	assert.True(t, eth.Features.LegacyRequests)
	assert.False(t, eth.Features.TracksCredits)

	gno, err := reg.Lookup(chains.Gnosis)
	require.NoError(t, err)
	assert.Equal(t, "Gnosis Chain", gno.Name)
	assert.True(t, gno.Features.TracksCredits)

	_, err = reg.Lookup("polygon")
	require.ErrorIs(t, err, chains.ErrUnknownChain)
}

func TestRegistryAllKeepsOrder(t *testing.T) {
	reg := chains.NewRegistryFrom(
		chains.Chain{ID: chains.Gnosis, SubgraphURL: "a"},
		chains.Chain{ID: chains.Ethereum, SubgraphURL: "b"},
		chains.Chain{ID: chains.Gnosis, SubgraphURL: "c"},
	)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, chains.Gnosis, all[0].ID)
	assert.Equal(t, "c", all[0].SubgraphURL)
	assert.Equal(t, chains.Ethereum, all[1].ID)
}
