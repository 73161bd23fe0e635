// Package pipeline implements PipelineRunner (spec §2/§6/§7): it
// sequences the seven stages over a shared run, takes the species cache
// (Options.SpeciesCache) and the ObservationClient, whose HTTP
// implementation carries the rate-limit gate, as constructor-injected
// singletons (spec §9), and
// produces the typed Result the caller renders or inspects. Grounded on
// the teacher's pkg/orchestration "sequence of named steps, collect a
// report" shape, narrowed to this spec's seven fixed stages (no dynamic
// plugin registry, per spec §9 "implement as tagged unions... do not
// model as an open plugin interface").
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aviantrail/tripplanner/internal/clustering"
	"github.com/aviantrail/tripplanner/internal/constraints"
	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/itinerary"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
	"github.com/aviantrail/tripplanner/internal/routeplan"
	"github.com/aviantrail/tripplanner/internal/scoring"
	"github.com/aviantrail/tripplanner/internal/sightings"
	"github.com/aviantrail/tripplanner/internal/species"
	"github.com/aviantrail/tripplanner/internal/telemetry"
)

// Runner sequences all seven stages. Every stage dependency is
// constructor-injected so tests can substitute stub ObservationClient/
// LLMClient implementations (spec §9).
type Runner struct {
	validator *species.Validator
	fetcher   *sightings.Fetcher
	filter    *constraints.Filter
	clusterer *clustering.Clusterer
	scorer    *scoring.Scorer
	optimizer *routeplan.Optimizer
	renderer  *itinerary.Renderer
	telemetry *telemetry.Provider
	logger    core.Logger
}

// Options bundles Runner's dependencies. LLMClient is optional: nil
// degrades Stages 1, 5, 7 to their fallback paths (spec §6).
type Options struct {
	ObservationClient       ebird.Client
	LLMClient               llm.Client
	SpeciesCache            species.Cache
	SightingsWorkerPoolSize int
	AverageDrivingSpeedKmh  float64
	Telemetry               *telemetry.Provider
	Logger                  core.Logger
}

// New wires one Runner from Options, applying the same defaults each
// stage package documents for a zero-valued field.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = core.NoOpLogger{}
	}

	var validator *species.Validator
	if opts.SpeciesCache != nil {
		validator = species.NewWithCache(opts.ObservationClient, opts.LLMClient, opts.SpeciesCache, logger)
	} else {
		validator = species.New(opts.ObservationClient, opts.LLMClient, logger)
	}

	return &Runner{
		validator: validator,
		fetcher:   sightings.New(opts.ObservationClient, opts.SightingsWorkerPoolSize, logger),
		filter:    constraints.New(opts.AverageDrivingSpeedKmh),
		clusterer: clustering.New(opts.ObservationClient, logger),
		scorer:    scoring.New(opts.LLMClient, logger),
		optimizer: routeplan.New(opts.AverageDrivingSpeedKmh, logger),
		renderer:  itinerary.New(opts.LLMClient, logger),
		telemetry: opts.Telemetry,
		logger:    logger,
	}
}

// Run sequences all seven stages over speciesList and constraints,
// producing a Result. Only a ValidationError on the initial input, or a
// fatal observation-service auth failure discovered during Stage 2,
// abort the pipeline early (spec §7); every other stage degrades in
// place and the run continues.
func (r *Runner) Run(ctx context.Context, speciesList []string, rawConstraints model.Constraints) Result {
	runID := uuid.NewString()
	ctx = core.WithRunID(ctx, runID)

	if err := validateInput(rawConstraints); err != nil {
		r.logger.WarnWithContext(ctx, "pipeline aborted: invalid input", map[string]interface{}{"error": err.Error()})
		return failure(err.Error())
	}
	c := rawConstraints.WithDefaults()

	targets, speciesStats := r.runSpecies(ctx, speciesList)

	sightingsList, sightingsStats := r.runSightings(ctx, targets, c)
	if sightingsStats.FatalAuthFailure {
		msg := fmt.Sprintf("observation service authentication failed for all %d species requests", sightingsStats.TotalSpecies)
		r.logger.ErrorWithContext(ctx, "pipeline aborted: fatal auth failure", map[string]interface{}{"error": msg})
		return failureWithPartial(msg, Result{ValidatedSpecies: targets, SpeciesStats: speciesStats, SightingsStats: sightingsStats})
	}

	enriched, compliance := r.runFilter(ctx, sightingsList, c)
	clusters, clusteringStats := r.runClustering(ctx, enriched, c)
	scored, scoringStats := r.runScoring(ctx, clusters, targets, c)

	start := startCoordinate(c)
	route := r.runRoute(ctx, scored, c, start)
	itin := r.runItinerary(ctx, route, targets, c)

	return Result{
		Success:           true,
		ItineraryMarkdown: itin.Markdown,
		ValidatedSpecies:  targets,
		HotspotClusters:   clusters,
		ScoredLocations:   scored,
		OrderedClusters:   route.OrderedClusters,
		RouteSegments:     route.Segments,
		RouteMethod:       route.OptimizationMethod,
		SpeciesStats:      speciesStats,
		SightingsStats:    sightingsStats,
		ComplianceStats:   compliance,
		ClusteringStats:   clusteringStats,
		ScoringStats:      scoringStats,
		RouteStats:        route.OptimizationStats,
		ItineraryStats:    itin.Stats,
	}
}

func (r *Runner) runSpecies(ctx context.Context, names []string) ([]model.TargetSpecies, model.SpeciesValidationStats) {
	ctx, span := r.startSpan(ctx, "species_validate")
	defer span.end(nil)
	return r.validator.Validate(ctx, names)
}

func (r *Runner) runSightings(ctx context.Context, targets []model.TargetSpecies, c model.Constraints) ([]model.Sighting, model.SightingsFetchStats) {
	ctx, span := r.startSpan(ctx, "sightings_fetch")
	defer span.end(nil)
	return r.fetcher.Fetch(ctx, targets, c)
}

func (r *Runner) runFilter(ctx context.Context, sightingsList []model.Sighting, c model.Constraints) ([]model.EnrichedSighting, model.ComplianceSummary) {
	_, span := r.startSpan(ctx, "constraint_filter")
	defer span.end(nil)
	return r.filter.Apply(sightingsList, c)
}

func (r *Runner) runClustering(ctx context.Context, enriched []model.EnrichedSighting, c model.Constraints) ([]model.HotspotCluster, model.ClusteringStats) {
	ctx, span := r.startSpan(ctx, "hotspot_cluster")
	defer span.end(nil)
	return r.clusterer.Cluster(ctx, enriched, c)
}

func (r *Runner) runScoring(ctx context.Context, clusters []model.HotspotCluster, targets []model.TargetSpecies, c model.Constraints) ([]model.ScoredCluster, model.ScoringStats) {
	ctx, span := r.startSpan(ctx, "location_score")
	defer span.end(nil)
	return r.scorer.Score(ctx, clusters, targets, c)
}

func (r *Runner) runRoute(ctx context.Context, scored []model.ScoredCluster, c model.Constraints, start geo.Coordinate) model.Route {
	_, span := r.startSpan(ctx, "route_optimize")
	defer span.end(nil)
	return r.optimizer.Optimize(scored, c, start)
}

func (r *Runner) runItinerary(ctx context.Context, route model.Route, targets []model.TargetSpecies, c model.Constraints) model.Itinerary {
	ctx, span := r.startSpan(ctx, "itinerary_render")
	defer span.end(nil)
	return r.renderer.Render(ctx, route, targets, c)
}

func startCoordinate(c model.Constraints) geo.Coordinate {
	if c.StartLocation == nil {
		return geo.Coordinate{}
	}
	return *c.StartLocation
}

func failure(message string) Result {
	return Result{Success: false, ErrorMessage: message, ItineraryMarkdown: noRouteDiagnostic(message)}
}

func failureWithPartial(message string, partial Result) Result {
	partial.Success = false
	partial.ErrorMessage = message
	partial.ItineraryMarkdown = noRouteDiagnostic(message)
	return partial
}

func noRouteDiagnostic(reason string) string {
	return fmt.Sprintf("# Trip Planning Failed\n\nThe itinerary could not be generated: %s\n", reason)
}

// validateInput applies spec §7's ValidationError checks against the
// initial input: out-of-range coordinates and an inverted explicit date
// range.
func validateInput(c model.Constraints) error {
	if c.StartLocation != nil && !c.StartLocation.Valid() {
		return fmt.Errorf("startLocation coordinates out of range: lat=%f lng=%f", c.StartLocation.Lat, c.StartLocation.Lng)
	}
	if c.DateRange != nil {
		start, errStart := geo.ParseObservationTime(c.DateRange.Start)
		end, errEnd := geo.ParseObservationTime(c.DateRange.End)
		if errStart != nil || errEnd != nil {
			return fmt.Errorf("dateRange start/end must be parseable dates")
		}
		if end.Before(start) {
			return fmt.Errorf("dateRange end (%s) precedes start (%s)", c.DateRange.End, c.DateRange.Start)
		}
	}
	return nil
}
