// Package clustering implements HotspotClusterer (spec §4.4): dedups
// EnrichedSightings into Locations by coordKey, merges in official
// hotspot metadata, then runs greedy distance-based clustering.
// Grounded on the teacher's sequential-aggregation style; clustering is
// input-order-sensitive by spec §5 so this package never reorders or
// parallelizes its phases.
package clustering

import (
	"context"
	"sort"
	"strconv"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

// ClusterRadiusKm is spec §4.4 Phase D's fixed cluster radius.
const ClusterRadiusKm = 15.0

// HotspotMergeToleranceKm is Phase C's "any hotspot within" tolerance.
const HotspotMergeToleranceKm = 0.5

// Clusterer implements HotspotClusterer.
type Clusterer struct {
	obs    ebird.Client
	logger core.Logger
}

// New constructs a Clusterer.
func New(obs ebird.Client, logger core.Logger) *Clusterer {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Clusterer{obs: obs, logger: logger}
}

// Cluster runs Phases A-E over sightings, in input order (spec §4.4).
func (c *Clusterer) Cluster(ctx context.Context, sightings []model.EnrichedSighting, constraints model.Constraints) ([]model.HotspotCluster, model.ClusteringStats) {
	constraints = constraints.WithDefaults()

	locations, locationOrder := c.dedupLocations(sightings)
	hotspots := c.discoverHotspots(ctx, constraints)
	locationOrder = c.mergeHotspots(locations, locationOrder, hotspots)

	groups := greedyCluster(locations, locationOrder, ClusterRadiusKm)

	clusters := make([]model.HotspotCluster, 0, len(groups))
	for i, group := range groups {
		clusters = append(clusters, buildCluster(i, group, sightings))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Statistics.SightingCount > clusters[j].Statistics.SightingCount
	})

	stats := model.ClusteringStats{
		TotalLocations:     len(locations),
		TotalClusters:      len(clusters),
		HotspotsDiscovered: len(hotspots),
	}
	return clusters, stats
}

// dedupLocations is Phase A: group sightings by coordKey, preserving
// first-seen order so Phase D's result is reproducible.
func (c *Clusterer) dedupLocations(sightings []model.EnrichedSighting) (map[string]*model.Location, []string) {
	locations := make(map[string]*model.Location)
	var order []string

	for _, s := range sightings {
		if s.Lat == nil || s.Lng == nil {
			continue
		}
		coord := geo.Coordinate{Lat: *s.Lat, Lng: *s.Lng}
		key := geo.CoordKey(coord)

		loc, ok := locations[key]
		if !ok {
			loc = model.NewLocation(key, coord.Lat, coord.Lng)
			loc.PrimaryLocID = s.LocID
			loc.PrimaryLocName = s.LocName
			locations[key] = loc
			order = append(order, key)
		} else if s.LocID != loc.PrimaryLocID {
			loc.AlternateLocIDs[s.LocID] = struct{}{}
			loc.AlternateLocNames[s.LocName] = struct{}{}
		}

		loc.SightingCount++
		loc.SpeciesCodes[s.SpeciesCode] = struct{}{}
		loc.ObservationDates[s.ObsDt] = struct{}{}
	}

	return locations, order
}

// discoverHotspots is Phase B: up to two hotspot queries, deduplicated
// by locId.
func (c *Clusterer) discoverHotspots(ctx context.Context, constraints model.Constraints) []ebird.Hotspot {
	seen := make(map[string]struct{})
	var out []ebird.Hotspot

	if constraints.RegionCode != "" {
		regional, err := c.obs.RegionalHotspots(ctx, constraints.RegionCode)
		if err != nil {
			c.logger.Warn("regional hotspot discovery failed", map[string]interface{}{"error": err.Error()})
		}
		for _, h := range regional {
			if _, ok := seen[h.LocID]; !ok {
				seen[h.LocID] = struct{}{}
				out = append(out, h)
			}
		}
	}

	if constraints.StartLocation != nil {
		distKm := float64(constraints.MaxDailyDistanceKm) / 2
		if distKm > 50 {
			distKm = 50
		}
		nearby, err := c.obs.NearbyHotspots(ctx, *constraints.StartLocation, distKm)
		if err != nil {
			c.logger.Warn("nearby hotspot discovery failed", map[string]interface{}{"error": err.Error()})
		}
		for _, h := range nearby {
			if _, ok := seen[h.LocID]; !ok {
				seen[h.LocID] = struct{}{}
				out = append(out, h)
			}
		}
	}

	return out
}

// mergeHotspots is Phase C: match each Location to a hotspot by exact
// coordKey, else the closest hotspot within tolerance, then add
// zero-sighting Locations for unmatched hotspots. It returns the location
// order extended with the keys of those added Locations.
func (c *Clusterer) mergeHotspots(locations map[string]*model.Location, order []string, hotspots []ebird.Hotspot) []string {
	hotspotByKey := make(map[string]ebird.Hotspot, len(hotspots))
	matchedKeys := make(map[string]struct{})
	for _, h := range hotspots {
		hotspotByKey[geo.CoordKey(geo.Coordinate{Lat: h.Lat, Lng: h.Lng})] = h
	}

	for _, key := range order {
		loc := locations[key]
		if h, ok := hotspotByKey[key]; ok {
			applyHotspotMetadata(loc, h, 0)
			matchedKeys[geo.CoordKey(geo.Coordinate{Lat: h.Lat, Lng: h.Lng})] = struct{}{}
			continue
		}

		var (
			best      *ebird.Hotspot
			bestDist  = HotspotMergeToleranceKm
		)
		for i := range hotspots {
			h := hotspots[i]
			d := geo.HaversineKm(geo.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, geo.Coordinate{Lat: h.Lat, Lng: h.Lng})
			if d <= bestDist {
				bestDist = d
				best = &hotspots[i]
			}
		}
		if best != nil {
			applyHotspotMetadata(loc, *best, bestDist)
			matchedKeys[geo.CoordKey(geo.Coordinate{Lat: best.Lat, Lng: best.Lng})] = struct{}{}
		}
	}

	for _, h := range hotspots {
		key := geo.CoordKey(geo.Coordinate{Lat: h.Lat, Lng: h.Lng})
		if _, ok := matchedKeys[key]; ok {
			continue
		}
		if _, ok := locations[key]; ok {
			continue
		}
		loc := model.NewLocation(key, h.Lat, h.Lng)
		loc.PrimaryLocID = h.LocID
		loc.PrimaryLocName = h.LocName
		applyHotspotMetadata(loc, h, 0)
		locations[key] = loc
		order = append(order, key)
	}
	return order
}

func applyHotspotMetadata(loc *model.Location, h ebird.Hotspot, distanceKm float64) {
	loc.IsHotspot = true
	numSpecies := 0
	if h.NumSpeciesAllTime != nil {
		numSpecies = *h.NumSpeciesAllTime
	}
	loc.HotspotMetadata = &model.HotspotMetadata{
		LocID:               h.LocID,
		Name:                h.LocName,
		Subnational1Code:    h.Subnational1Code,
		Subnational2Code:    h.Subnational2Code,
		NumSpeciesAllTime:   numSpecies,
		LatestObsDate:       h.LatestObsDt,
		DistanceToHotspotKm: distanceKm,
	}
}

// greedyCluster is Phase D: pop an unassigned location as a seed, then
// repeatedly absorb any unassigned location within radiusKm of any
// current cluster member, preserving input order for reproducibility.
func greedyCluster(locations map[string]*model.Location, order []string, radiusKm float64) [][]*model.Location {
	assigned := make(map[string]bool, len(order))
	var groups [][]*model.Location

	for _, seedKey := range order {
		if assigned[seedKey] {
			continue
		}
		group := []*model.Location{locations[seedKey]}
		assigned[seedKey] = true

		for {
			addedAny := false
			for _, key := range order {
				if assigned[key] {
					continue
				}
				candidate := locations[key]
				for _, member := range group {
					if geo.HaversineKm(geo.Coordinate{Lat: member.Lat, Lng: member.Lng}, geo.Coordinate{Lat: candidate.Lat, Lng: candidate.Lng}) <= radiusKm {
						group = append(group, candidate)
						assigned[key] = true
						addedAny = true
						break
					}
				}
			}
			if !addedAny {
				break
			}
		}

		groups = append(groups, group)
	}

	return groups
}

// buildCluster is Phase E.
func buildCluster(index int, group []*model.Location, allSightings []model.EnrichedSighting) model.HotspotCluster {
	memberKeys := make(map[string]struct{}, len(group))
	var sumLat, sumLng float64
	speciesSet := make(map[string]struct{})
	hotspotCount := 0
	mostRecent := ""

	for _, loc := range group {
		memberKeys[loc.CoordKey] = struct{}{}
		sumLat += loc.Lat
		sumLng += loc.Lng
		if loc.IsHotspot {
			hotspotCount++
		}
		for code := range loc.SpeciesCodes {
			speciesSet[code] = struct{}{}
		}
	}
	centerLat := sumLat / float64(len(group))
	centerLng := sumLng / float64(len(group))

	var clusterSightings []*model.EnrichedSighting
	var travelTimeSum float64
	var travelTimeCount int
	for i := range allSightings {
		s := &allSightings[i]
		if s.Lat == nil || s.Lng == nil {
			continue
		}
		key := geo.CoordKey(geo.Coordinate{Lat: *s.Lat, Lng: *s.Lng})
		if _, ok := memberKeys[key]; !ok {
			continue
		}
		clusterSightings = append(clusterSightings, s)
		if s.ObsDt > mostRecent {
			mostRecent = s.ObsDt
		}
		if s.EstimatedTravelTimeHours != nil {
			travelTimeSum += *s.EstimatedTravelTimeHours
			travelTimeCount++
		}
	}

	var avgTravelTime *float64
	if travelTimeCount > 0 {
		avg := travelTimeSum / float64(travelTimeCount)
		avgTravelTime = &avg
	}

	radius := 0.0
	for _, loc := range group {
		d := geo.HaversineKm(geo.Coordinate{Lat: centerLat, Lng: centerLng}, geo.Coordinate{Lat: loc.Lat, Lng: loc.Lng})
		if d > radius {
			radius = d
		}
	}

	name := pickClusterName(group)

	speciesCodes := make([]string, 0, len(speciesSet))
	for code := range speciesSet {
		speciesCodes = append(speciesCodes, code)
	}
	sort.Strings(speciesCodes)

	coordQuality := model.CoordinateQualityMedium
	if allLocationsHaveSightings(group) {
		coordQuality = model.CoordinateQualityHigh
	}

	return model.HotspotCluster{
		ClusterID:   clusterID(index),
		ClusterName: name,
		CenterLat:   centerLat,
		CenterLng:   centerLng,
		Locations:   group,
		Sightings:   clusterSightings,
		Statistics: model.ClusterStatistics{
			LocationCount:         len(group),
			SightingCount:         len(clusterSightings),
			SpeciesDiversity:      len(speciesSet),
			HotspotCount:          hotspotCount,
			ClusterRadiusKm:       radius,
			MostRecentObservation: mostRecent,
			SpeciesCodes:          speciesCodes,
		},
		Accessibility: model.ClusterAccessibility{
			HasHotspot:            hotspotCount > 0,
			CoordinateQuality:     coordQuality,
			AvgTravelTimeEstimate: avgTravelTime,
		},
	}
}

// allLocationsHaveSightings is the original clustering.py's
// coordinate_quality rule: "high" when every member Location has at
// least one sighting, "medium" otherwise (_calculate_coordinate_quality).
func allLocationsHaveSightings(group []*model.Location) bool {
	for _, loc := range group {
		if loc.SightingCount == 0 {
			return false
		}
	}
	return true
}

// pickClusterName picks the most-diverse hotspot's name, or the
// highest-sighting location's name if no hotspot is present. Ties break
// on speciesDiversity then lexicographic locName (spec §4.4's
// determinism note).
func pickClusterName(group []*model.Location) string {
	var bestHotspot *model.Location
	for _, loc := range group {
		if !loc.IsHotspot {
			continue
		}
		if bestHotspot == nil || better(loc, bestHotspot) {
			bestHotspot = loc
		}
	}
	if bestHotspot != nil {
		return bestHotspot.PrimaryLocName
	}

	var best *model.Location
	for _, loc := range group {
		if best == nil || loc.SightingCount > best.SightingCount {
			best = loc
		}
	}
	if best == nil {
		return "Unnamed location"
	}
	return best.PrimaryLocName
}

func better(a, b *model.Location) bool {
	if len(a.SpeciesCodes) != len(b.SpeciesCodes) {
		return len(a.SpeciesCodes) > len(b.SpeciesCodes)
	}
	return a.PrimaryLocName < b.PrimaryLocName
}

func clusterID(index int) string {
	return "cluster-" + strconv.Itoa(index)
}
