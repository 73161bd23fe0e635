// Package sightings implements SightingsFetcher (spec §4.2): a bounded
// concurrent fan-out over TargetSpecies, each fetched through
// ObservationClient and enriched with provenance. Grounded on the
// teacher's pkg/orchestration/executor.go bounded-worker-pool pattern
// (semaphore-gated goroutines; each worker writes its result into its
// own slot, aggregated after all workers finish).
package sightings

import (
	"context"
	"sync"
	"time"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

// DefaultWorkerPoolSize is spec §4.2's default concurrency W.
const DefaultWorkerPoolSize = 5

// Fetcher implements SightingsFetcher.
type Fetcher struct {
	obs        ebird.Client
	logger     core.Logger
	poolSize   int
}

// New constructs a Fetcher. poolSize <= 0 uses DefaultWorkerPoolSize.
func New(obs ebird.Client, poolSize int, logger core.Logger) *Fetcher {
	if poolSize <= 0 {
		poolSize = DefaultWorkerPoolSize
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Fetcher{obs: obs, poolSize: poolSize, logger: logger}
}

type fetchResult struct {
	sightings []model.Sighting
	method    model.FetchMethod
	err       error
}

// Fetch runs one bounded-concurrency fan-out over species, aggregating
// whatever completed successfully (spec §5: "Stage 2 honors cancellation
// by letting in-flight workers finish").
func (f *Fetcher) Fetch(ctx context.Context, targets []model.TargetSpecies, constraints model.Constraints) ([]model.Sighting, model.SightingsFetchStats) {
	constraints = constraints.WithDefaults()
	stats := model.SightingsFetchStats{
		TotalSpecies:     len(targets),
		FetchMethodStats: model.FetchMethodStats{},
	}
	if len(targets) == 0 {
		return nil, stats
	}

	sem := make(chan struct{}, f.poolSize)
	results := make([]fetchResult, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target model.TargetSpecies) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = f.fetchOne(ctx, target, constraints)
		}(i, target)
	}
	wg.Wait()

	allSightings := make([]model.Sighting, 0)
	locIDs := make(map[string]struct{})
	authFailures := 0
	for _, r := range results {
		if r.err != nil {
			stats.APIErrors++
			if core.IsAuthFailure(r.err) {
				authFailures++
			}
			continue
		}
		if len(r.sightings) == 0 {
			stats.EmptyResults++
			continue
		}
		stats.SuccessfulFetches++
		stats.FetchMethodStats[r.method] += len(r.sightings)
		for _, s := range r.sightings {
			allSightings = append(allSightings, s)
			locIDs[s.LocID] = struct{}{}
		}
	}
	stats.TotalObservations = len(allSightings)
	stats.UniqueLocations = len(locIDs)
	stats.FatalAuthFailure = stats.APIErrors > 0 && authFailures == stats.APIErrors && stats.SuccessfulFetches == 0

	return allSightings, stats
}

// fetchOne selects a strategy per spec §4.2 and issues one request,
// treating any error as a per-species failure (the stage itself never
// retries; ObservationClient already does).
func (f *Fetcher) fetchOne(ctx context.Context, target model.TargetSpecies, constraints model.Constraints) fetchResult {
	daysBack := geo.ClampDaysBack(constraints.DaysBack)

	var (
		obs    []ebird.Observation
		method model.FetchMethod
		err    error
	)

	if constraints.StartLocation != nil {
		distKm := float64(constraints.MaxDailyDistanceKm) / 2
		if distKm > 50 {
			distKm = 50
		}
		method = model.FetchNearbyObservations
		obs, err = f.obs.NearbyObservations(ctx, *constraints.StartLocation, distKm, daysBack, target.SpeciesCode)
	} else {
		method = model.FetchSpeciesObservations
		obs, err = f.obs.SpeciesObservationsInRegion(ctx, constraints.RegionCode, target.SpeciesCode, daysBack, false)
	}

	if err != nil {
		return fetchResult{method: method, err: err}
	}

	now := time.Now()
	sightings := make([]model.Sighting, 0, len(obs))
	for _, o := range obs {
		sightings = append(sightings, model.Sighting{
			SpeciesCode:          o.SpeciesCode,
			CommonName:           o.ComName,
			ScientificName:       o.SciName,
			LocID:                o.LocID,
			LocName:              o.LocName,
			Lat:                  o.Lat,
			Lng:                  o.Lng,
			ObsDt:                o.ObsDt,
			HowMany:              o.HowMany,
			ObsValid:             o.ObsValid,
			ObsReviewed:          o.ObsReviewed,
			LocationPrivate:      o.LocationPrivate,
			FetchMethod:          method,
			FetchTimestamp:       now,
			ValidationConfidence: target.Confidence,
			ValidationMethod:     target.ValidationMethod,
			OriginalSpeciesName:  target.OriginalName,
			SeasonalNotes:        target.SeasonalNotes,
			BehavioralNotes:      target.BehavioralNotes,
		})
	}

	return fetchResult{sightings: sightings, method: method}
}
