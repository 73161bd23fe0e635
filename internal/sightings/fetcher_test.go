package sightings

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

func sampleTargets(n int) []model.TargetSpecies {
	out := make([]model.TargetSpecies, n)
	for i := range out {
		out[i] = model.TargetSpecies{
			OriginalName: fmt.Sprintf("species-%d", i),
			SpeciesCode:  fmt.Sprintf("code%d", i),
			Confidence:   1.0,
		}
	}
	return out
}

func TestFetch_UsesSpeciesObservations_WhenNoStartLocation(t *testing.T) {
	lat, lng := 42.36, -71.05
	stub := ebird.NewStubClient()
	stub.Obs = []ebird.Observation{{SpeciesCode: "norcar", LocID: "L1", Lat: &lat, Lng: &lng}}

	f := New(stub, 2, core.NoOpLogger{})
	sightings, stats := f.Fetch(context.Background(), sampleTargets(1), model.Constraints{RegionCode: "US-MA"})

	require.Len(t, sightings, 1)
	assert.Equal(t, model.FetchSpeciesObservations, sightings[0].FetchMethod)
	assert.Equal(t, 1, stats.SuccessfulFetches)
	assert.Equal(t, 1, stats.UniqueLocations)
}

func TestFetch_UsesNearbyObservations_WhenStartLocationPresent(t *testing.T) {
	stub := ebird.NewStubClient()
	stub.Obs = []ebird.Observation{{SpeciesCode: "norcar", LocID: "L1"}}

	f := New(stub, 2, core.NoOpLogger{})
	start := geo.Coordinate{Lat: 42.36, Lng: -71.05}
	sightings, _ := f.Fetch(context.Background(), sampleTargets(1), model.Constraints{StartLocation: &start})

	require.Len(t, sightings, 1)
	assert.Equal(t, model.FetchNearbyObservations, sightings[0].FetchMethod)
}

func TestFetch_PerSpeciesFailureDoesNotCancelPeers(t *testing.T) {
	stub := &failingThenSucceedingClient{failCodes: map[string]bool{"code1": true}}

	f := New(stub, 3, core.NoOpLogger{})
	sightings, stats := f.Fetch(context.Background(), sampleTargets(3), model.Constraints{RegionCode: "US-MA"})

	assert.Equal(t, 1, stats.APIErrors)
	assert.Equal(t, 2, stats.SuccessfulFetches)
	assert.Len(t, sightings, 2)
}

func TestFetch_EmptyTargets_ProducesZeroStats(t *testing.T) {
	f := New(ebird.NewStubClient(), 2, core.NoOpLogger{})
	sightings, stats := f.Fetch(context.Background(), nil, model.Constraints{})
	assert.Empty(t, sightings)
	assert.Equal(t, 0, stats.TotalSpecies)
}

// failingThenSucceedingClient fails SpeciesObservationsInRegion for
// species codes in failCodes and succeeds for everything else.
type failingThenSucceedingClient struct {
	ebird.StubClient
	failCodes map[string]bool
}

func (c *failingThenSucceedingClient) SpeciesObservationsInRegion(ctx context.Context, regionCode, speciesCode string, daysBack int, hotspotOnly bool) ([]ebird.Observation, error) {
	if c.failCodes[speciesCode] {
		return nil, assert.AnError
	}
	return []ebird.Observation{{SpeciesCode: speciesCode, LocID: "L-" + speciesCode}}, nil
}

func (c *failingThenSucceedingClient) FetchTaxonomy(ctx context.Context) ([]ebird.TaxonomyEntry, error) {
	return nil, nil
}
