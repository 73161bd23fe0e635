package itinerary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
)

func sampleRoute() model.Route {
	return model.Route{
		TotalDistanceKm:    42.5,
		OptimizationMethod: model.OptimizationTwoOpt,
		OrderedClusters: []*model.ScoredCluster{
			{
				HotspotCluster: model.HotspotCluster{
					ClusterID: "c1", ClusterName: "Mount Auburn Cemetery",
					CenterLat: 42.3601, CenterLng: -71.0589,
					Statistics:    model.ClusterStatistics{SpeciesCodes: []string{"norcar", "baleag"}, MostRecentObservation: "2026-03-01"},
					Accessibility: model.ClusterAccessibility{HasHotspot: true},
				},
				FinalScore: 0.82,
			},
		},
		Segments: []model.RouteSegment{
			{SegmentNumber: 1, FromName: "Start", ToName: "Mount Auburn Cemetery", DistanceKm: 21.2, EstimatedDriveTimeHours: 0.4, CumulativeDistanceKm: 21.2},
			{SegmentNumber: 2, FromName: "Mount Auburn Cemetery", ToName: "Start", DistanceKm: 21.3, EstimatedDriveTimeHours: 0.4, CumulativeDistanceKm: 42.5},
		},
	}
}

func sampleTargets() []model.TargetSpecies {
	return []model.TargetSpecies{
		{CommonName: "Northern Cardinal", ScientificName: "Cardinalis cardinalis", SpeciesCode: "norcar", SeasonalNotes: "Year-round resident"},
		{CommonName: "Bald Eagle", ScientificName: "Haliaeetus leucocephalus", SpeciesCode: "baleag", SeasonalNotes: "Winter visitor"},
	}
}

func TestRender_NoLLM_UsesTemplateFallback(t *testing.T) {
	r := New(nil, core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, model.ItineraryTemplateFallback, it.Stats.Method)
	assert.Equal(t, 0, it.Stats.LLMAttempts)
	assert.Contains(t, it.Markdown, "Mount Auburn Cemetery")
	assert.Contains(t, it.Markdown, "Equipment Checklist")
	assert.Contains(t, it.Markdown, "Binoculars")
}

func TestRender_ValidLLMResponse_UsedVerbatim(t *testing.T) {
	longBody := "## Overview\n\n" + strings.Repeat("Visit this great location and track the time of day for species sightings. ", 15)
	stub := llm.NewStubClient(longBody)

	r := New(stub, core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, model.ItineraryLLMEnhanced, it.Stats.Method)
	assert.Equal(t, 1, it.Stats.LLMAttempts)
	assert.Contains(t, it.Markdown, "Overview")
}

func TestRender_TooShortLLMResponse_RetriesThenFallsBack(t *testing.T) {
	stub := llm.NewStubClient("## too short")
	r := New(stub, core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, model.ItineraryTemplateFallback, it.Stats.Method)
	assert.Equal(t, maxLLMAttempts, it.Stats.LLMAttempts)
}

func TestRender_LLMMissingRequiredKeyword_FallsBack(t *testing.T) {
	body := "## Overview\n\n" + strings.Repeat("Nothing relevant is mentioned here at all today. ", 15)
	stub := llm.NewStubClient(body)
	r := New(stub, core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, model.ItineraryTemplateFallback, it.Stats.Method)
}

func TestRender_LLMFailure_IsNonFatal(t *testing.T) {
	r := New(llm.NewFailingStubClient(), core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, model.ItineraryTemplateFallback, it.Stats.Method)
	assert.Equal(t, maxLLMAttempts, it.Stats.LLMAttempts)
}

func TestRender_StatsReflectRouteAndTargets(t *testing.T) {
	r := New(nil, core.NoOpLogger{})
	it := r.Render(context.Background(), sampleRoute(), sampleTargets(), model.Constraints{})

	assert.Equal(t, 2, it.Stats.TotalSpecies)
	assert.Equal(t, 1, it.Stats.TotalLocations)
	assert.InDelta(t, 0.8, it.Stats.EstimatedTripDurationHours, 1e-9)
}

func TestRender_EmptyRoute_StillProducesValidMarkdown(t *testing.T) {
	r := New(nil, core.NoOpLogger{})
	it := r.Render(context.Background(), model.Route{OptimizationMethod: model.OptimizationEmpty}, nil, model.Constraints{})

	require.NotEmpty(t, it.Markdown)
	assert.Contains(t, it.Markdown, "No target species specified")
}

func TestIsValidItineraryMarkdown_RequiresAllThreeKeywords(t *testing.T) {
	long := strings.Repeat("word ", 120)
	assert.False(t, isValidItineraryMarkdown("## heading\n"+long))
	assert.True(t, isValidItineraryMarkdown("## heading\n"+long+" species location time"))
}
