package pipeline

import "github.com/aviantrail/tripplanner/internal/model"

// Result is the pipeline output record spec §6 describes: a success
// flag, the rendered itinerary, the per-stage outputs a caller may want
// to inspect directly, and every stage's stats block (always present,
// even on failure, per spec §7 "All stats blocks are always present").
type Result struct {
	Success           bool
	ErrorMessage      string
	ItineraryMarkdown string

	ValidatedSpecies []model.TargetSpecies
	HotspotClusters  []model.HotspotCluster
	ScoredLocations  []model.ScoredCluster
	OrderedClusters  []*model.ScoredCluster
	RouteSegments    []model.RouteSegment
	RouteMethod      model.OptimizationMethod

	SpeciesStats     model.SpeciesValidationStats
	SightingsStats   model.SightingsFetchStats
	ComplianceStats  model.ComplianceSummary
	ClusteringStats  model.ClusteringStats
	ScoringStats     model.ScoringStats
	RouteStats       model.OptimizationStats
	ItineraryStats   model.ItineraryStats
}
