package clustering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/model"
)

func ptrF(v float64) *float64 { return &v }

func sighting(locID, species string, lat, lng float64, obsDt string) model.EnrichedSighting {
	return model.EnrichedSighting{
		Sighting: model.Sighting{
			LocID: locID, SpeciesCode: species, Lat: ptrF(lat), Lng: ptrF(lng), ObsDt: obsDt,
		},
	}
}

func TestCluster_DedupsByCoordKey(t *testing.T) {
	sightings := []model.EnrichedSighting{
		sighting("L1", "norcar", 42.3601, -71.0589, "2026-03-01"),
		sighting("L2", "norcar", 42.3601, -71.0589, "2026-03-02"), // same coordKey, different locId
	}
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, stats := c.Cluster(context.Background(), sightings, model.Constraints{})

	require.Len(t, clusters, 1)
	assert.Equal(t, 1, stats.TotalLocations)
	assert.Equal(t, 2, clusters[0].Statistics.SightingCount)
}

func TestCluster_GreedyClustersWithinRadius(t *testing.T) {
	sightings := []model.EnrichedSighting{
		sighting("L1", "norcar", 42.36, -71.06, "2026-03-01"),
		sighting("L2", "baleag", 42.37, -71.05, "2026-03-01"), // ~1.3km from L1, joins cluster
		sighting("L3", "norcar", 50.00, -71.06, "2026-03-01"), // far away, separate cluster
	}
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{})

	require.Len(t, clusters, 2)
}

func TestCluster_MergesHotspotMetadata(t *testing.T) {
	stub := ebird.NewStubClient()
	stub.Hotspots = []ebird.Hotspot{{LocID: "H1", LocName: "Mount Auburn Cemetery", Lat: 42.3601, Lng: -71.0589}}

	sightings := []model.EnrichedSighting{
		sighting("L1", "norcar", 42.3601, -71.0589, "2026-03-01"),
	}
	c := New(stub, core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{RegionCode: "US-MA"})

	require.Len(t, clusters, 1)
	assert.True(t, clusters[0].Accessibility.HasHotspot)
	assert.Equal(t, "Mount Auburn Cemetery", clusters[0].ClusterName)
}

func TestCluster_CenterIsArithmeticMeanOfLocations(t *testing.T) {
	sightings := []model.EnrichedSighting{
		sighting("L1", "norcar", 42.0, -71.0, "2026-03-01"),
		sighting("L2", "norcar", 42.01, -71.01, "2026-03-01"),
	}
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{})

	require.Len(t, clusters, 1)
	assert.InDelta(t, 42.005, clusters[0].CenterLat, 1e-9)
	assert.InDelta(t, -71.005, clusters[0].CenterLng, 1e-9)
}

func TestCluster_EmptyInput_ProducesZeroClusters(t *testing.T) {
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, stats := c.Cluster(context.Background(), nil, model.Constraints{})
	assert.Empty(t, clusters)
	assert.Equal(t, 0, stats.TotalClusters)
}

func TestCluster_AvgTravelTimeEstimate_MeansNonNilSightingValues(t *testing.T) {
	s1 := sighting("L1", "norcar", 42.36, -71.06, "2026-03-01")
	s1.EstimatedTravelTimeHours = ptrF(1.0)
	s2 := sighting("L1", "baleag", 42.36, -71.06, "2026-03-02")
	s2.EstimatedTravelTimeHours = ptrF(3.0)
	s3 := sighting("L1", "amerob", 42.36, -71.06, "2026-03-03") // no estimate, excluded from the mean

	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), []model.EnrichedSighting{s1, s2, s3}, model.Constraints{})

	require.Len(t, clusters, 1)
	require.NotNil(t, clusters[0].Accessibility.AvgTravelTimeEstimate)
	assert.InDelta(t, 2.0, *clusters[0].Accessibility.AvgTravelTimeEstimate, 1e-9)
}

func TestCluster_AvgTravelTimeEstimate_NilWhenNoSightingHasOne(t *testing.T) {
	sightings := []model.EnrichedSighting{sighting("L1", "norcar", 42.36, -71.06, "2026-03-01")}
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{})

	require.Len(t, clusters, 1)
	assert.Nil(t, clusters[0].Accessibility.AvgTravelTimeEstimate)
}

func TestCluster_CoordinateQuality_HighOnlyWhenAllLocationsHaveSightings(t *testing.T) {
	stub := ebird.NewStubClient()
	stub.Hotspots = []ebird.Hotspot{{LocID: "H1", LocName: "Empty Hotspot", Lat: 50.0, Lng: 50.0}}

	sightings := []model.EnrichedSighting{
		sighting("L1", "norcar", 42.36, -71.06, "2026-03-01"),
		sighting("L2", "baleag", 42.37, -71.05, "2026-03-01"), // within cluster radius, has a sighting
	}
	c := New(stub, core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{RegionCode: "US-MA"})

	require.Len(t, clusters, 2)
	withSightings := clusters[0]
	if withSightings.Statistics.SightingCount == 0 {
		withSightings = clusters[1]
	}
	assert.Equal(t, model.CoordinateQualityHigh, withSightings.Accessibility.CoordinateQuality)

	for _, cl := range clusters {
		if cl.Statistics.SightingCount == 0 {
			assert.Equal(t, model.CoordinateQualityMedium, cl.Accessibility.CoordinateQuality, "a zero-sighting hotspot-only cluster no longer qualifies as high quality")
		}
	}
}

func TestCluster_SortedByDescendingSightingCount(t *testing.T) {
	sightings := []model.EnrichedSighting{
		sighting("L1", "a", 10.0, 10.0, "2026-03-01"),
		sighting("L2", "b", 20.0, 20.0, "2026-03-01"),
		sighting("L2", "c", 20.0, 20.0, "2026-03-01"),
	}
	c := New(ebird.NewStubClient(), core.NoOpLogger{})
	clusters, _ := c.Cluster(context.Background(), sightings, model.Constraints{})

	require.Len(t, clusters, 2)
	assert.GreaterOrEqual(t, clusters[0].Statistics.SightingCount, clusters[1].Statistics.SightingCount)
}
