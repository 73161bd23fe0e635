package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

func ptrF(v float64) *float64 { return &v }
func ptrB(v bool) *bool       { return &v }

func cardinalTaxonomy() []ebird.TaxonomyEntry {
	return []ebird.TaxonomyEntry{
		{SpeciesCode: "norcar", CommonName: "Northern Cardinal", ScientificName: "Cardinalis cardinalis", Category: "species"},
	}
}

func boundStubClient(obs []ebird.Observation) *ebird.StubClient {
	stub := ebird.NewStubClient()
	stub.Taxonomy = cardinalTaxonomy()
	stub.Obs = obs
	return stub
}

func sampleObs(n int) []ebird.Observation {
	out := make([]ebird.Observation, 0, n)
	today := time.Now().Format("2006-01-02")
	for i := 0; i < n; i++ {
		out = append(out, ebird.Observation{
			SpeciesCode: "norcar", ComName: "Northern Cardinal", SciName: "Cardinalis cardinalis",
			LocID: "L1", LocName: "Mount Auburn Cemetery",
			Lat: ptrF(42.3601), Lng: ptrF(-71.0589), ObsDt: today,
			ObsValid: ptrB(true), ObsReviewed: ptrB(true),
		})
	}
	return out
}

func newTestRunner(obs ebird.Client) *Runner {
	return New(Options{ObservationClient: obs, Logger: core.NoOpLogger{}})
}

func TestRun_HappyPath_ProducesSuccessfulItinerary(t *testing.T) {
	obs := boundStubClient(sampleObs(3))
	r := newTestRunner(obs)

	result := r.Run(context.Background(), []string{"Northern Cardinal"}, model.Constraints{RegionCode: "US-MA"})

	require.True(t, result.Success)
	assert.NotEmpty(t, result.ItineraryMarkdown)
	assert.Len(t, result.ValidatedSpecies, 1)
	assert.Equal(t, model.DirectCommonName, result.ValidatedSpecies[0].ValidationMethod)
	assert.NotEmpty(t, result.HotspotClusters)
}

func TestRun_EmptySpeciesList_SucceedsWithNoRoute(t *testing.T) {
	obs := boundStubClient(nil)
	r := newTestRunner(obs)

	result := r.Run(context.Background(), nil, model.Constraints{RegionCode: "US-MA"})

	require.True(t, result.Success)
	assert.Empty(t, result.ValidatedSpecies)
	assert.Equal(t, model.OptimizationEmpty, result.RouteMethod)
	assert.Empty(t, result.OrderedClusters)
}

func TestRun_InvalidStartLocation_AbortsWithValidationError(t *testing.T) {
	obs := boundStubClient(sampleObs(1))
	r := newTestRunner(obs)

	bad := geo.Coordinate{Lat: 200, Lng: 0}
	result := r.Run(context.Background(), []string{"Northern Cardinal"}, model.Constraints{StartLocation: &bad})

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "out of range")
	assert.Contains(t, result.ItineraryMarkdown, "could not be generated")
}

func TestRun_InvertedDateRange_AbortsWithValidationError(t *testing.T) {
	obs := boundStubClient(sampleObs(1))
	r := newTestRunner(obs)

	result := r.Run(context.Background(), []string{"Northern Cardinal"}, model.Constraints{
		RegionCode: "US-MA",
		DateRange:  &model.DateRange{Start: "2026-06-01", End: "2026-01-01"},
	})

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "precedes")
}

func TestRun_AllSightingsInvalidGPS_ProducesEmptyRouteAndNoRouteTemplate(t *testing.T) {
	obs := ebird.NewStubClient()
	obs.Taxonomy = cardinalTaxonomy()
	obs.Obs = []ebird.Observation{{SpeciesCode: "norcar", ComName: "Northern Cardinal", ObsDt: time.Now().Format("2006-01-02")}}
	r := newTestRunner(obs)

	result := r.Run(context.Background(), []string{"Northern Cardinal"}, model.Constraints{RegionCode: "US-MA"})

	require.True(t, result.Success)
	assert.Empty(t, result.HotspotClusters)
	assert.Empty(t, result.OrderedClusters)
	assert.Contains(t, strings.ToLower(result.ItineraryMarkdown), "no route available")
}

func TestRun_FatalAuthFailureDuringSightings_AbortsPipeline(t *testing.T) {
	obs := ebird.NewStubClient()
	obs.Taxonomy = cardinalTaxonomy()
	failing := &authFailingClient{StubClient: *obs}
	r := newTestRunner(failing)

	result := r.Run(context.Background(), []string{"Northern Cardinal"}, model.Constraints{RegionCode: "US-MA"})

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "authentication failed")
}

type authFailingClient struct {
	ebird.StubClient
}

func (a *authFailingClient) SpeciesObservationsInRegion(ctx context.Context, regionCode, speciesCode string, daysBack int, hotspotOnly bool) ([]ebird.Observation, error) {
	return nil, core.NewObservationServiceError("ebird.speciesObservations", "AuthError", core.ErrAuth, 0)
}

func TestRun_ReRun_ProducesIdenticalMarkdownModuloTimestamp(t *testing.T) {
	obs := boundStubClient(sampleObs(3))
	r := newTestRunner(obs)

	c := model.Constraints{RegionCode: "US-MA"}
	first := r.Run(context.Background(), []string{"Northern Cardinal"}, c)
	second := r.Run(context.Background(), []string{"Northern Cardinal"}, c)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, stripTimestampLine(first.ItineraryMarkdown), stripTimestampLine(second.ItineraryMarkdown))
}

func stripTimestampLine(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, "_Generated ") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func TestRun_SpeciesCacheReused_NoAdditionalTaxonomyLookups(t *testing.T) {
	obs := boundStubClient(sampleObs(1))
	r := newTestRunner(obs)

	c := model.Constraints{RegionCode: "US-MA"}
	r.Run(context.Background(), []string{"Northern Cardinal"}, c)
	r.Run(context.Background(), []string{"Northern Cardinal"}, c)

	taxonomyCallsTotal := 0
	for _, call := range obs.CallLog {
		if call == "FetchTaxonomy" {
			taxonomyCallsTotal++
		}
	}
	assert.Equal(t, 1, taxonomyCallsTotal)
}
