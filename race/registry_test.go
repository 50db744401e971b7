package race

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltgpu/volt/api"
)

func specForOffer(i int) api.CreateInstanceSpec {
	return api.CreateInstanceSpec{OfferID: fmt.Sprintf("o-%d", i), DiskSize: 32}
}

func TestRegistryPurgeDeletesEverythingOnce(t *testing.T) {
	market := newFakeMarket()
	registry := NewRegistry(nil, nil)

	for i := 0; i < 3; i++ {
		id, err := market.CreateInstance(context.Background(), specForOffer(i))
		require.NoError(t, err)
		registry.Add(i, id, specForOffer(i).OfferID)
	}
	require.Equal(t, 3, registry.Len())

	issued := registry.Purge(context.Background(), market)
	assert.Equal(t, 3, issued)
	assert.Equal(t, 3, market.deleteCount())
	assert.Zero(t, registry.Len())

	// A second teardown path finds nothing left to delete.
	assert.Zero(t, registry.Purge(context.Background(), market))
	assert.Equal(t, 3, market.deleteCount())
}

func TestRegistryPurgeKeepsWinner(t *testing.T) {
	market := newFakeMarket()
	registry := NewRegistry(nil, nil)

	for i := 0; i < 3; i++ {
		id, err := market.CreateInstance(context.Background(), specForOffer(i))
		require.NoError(t, err)
		registry.Add(i, id, specForOffer(i).OfferID)
	}

	winner := instanceID("o-1")
	issued := registry.Purge(context.Background(), market, winner)
	assert.Equal(t, 2, issued)
	assert.NotContains(t, market.deletes, winner)
	assert.Zero(t, registry.Len())
}
