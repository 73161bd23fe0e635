// Package routeplan implements RouteOptimizer (spec §4.6): selects and
// orders ScoredClusters into a drivable loop using 2-opt for small K and
// an enhanced nearest-neighbor heuristic for larger K, always falling
// back to score order on any algorithm failure. Grounded on the
// teacher's pkg/orchestration/executor.go style of small, composable
// pure functions over slices.
package routeplan

import (
	"sort"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

// MaxLocationsAbsolute is spec §4.6's hard cap on K regardless of
// Constraints.maxLocationsPerDay.
const MaxLocationsAbsolute = 12

// TwoOptThreshold is the K at which the optimizer switches from 2-opt to
// enhanced nearest-neighbor.
const TwoOptThreshold = 8

const twoOptMaxPasses = 100

// Optimizer implements RouteOptimizer.
type Optimizer struct {
	averageDrivingSpeedKmh float64
	logger                 core.Logger
}

// New constructs an Optimizer. averageDrivingSpeedKmh <= 0 uses 60 km/h.
func New(averageDrivingSpeedKmh float64, logger core.Logger) *Optimizer {
	if averageDrivingSpeedKmh <= 0 {
		averageDrivingSpeedKmh = 60
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Optimizer{averageDrivingSpeedKmh: averageDrivingSpeedKmh, logger: logger}
}

// Optimize selects and orders clusters into a Route (spec §4.6). Any
// panic inside the ordering algorithms is recovered and treated as an
// algorithm failure, falling back to plain score order (spec §4.6: "On
// any algorithm exception -> return clusters in score order").
func (o *Optimizer) Optimize(clusters []model.ScoredCluster, constraints model.Constraints, start geo.Coordinate) (route model.Route) {
	constraints = constraints.WithDefaults()
	selected := selectClusters(clusters, constraints)

	result := o.safeOrder(selected, start)
	return o.buildRoute(result, start)
}

func (o *Optimizer) safeOrder(selected []model.ScoredCluster, start geo.Coordinate) (result orderedResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("route optimization algorithm panicked, falling back to score order", map[string]interface{}{"recovered": r})
			result = orderedResult{
				clusters: selected,
				method:   model.OptimizationFallbackScoreOrder,
				stats:    model.OptimizationStats{FellBackToScoreOrder: true},
			}
		}
	}()
	return o.order(selected, start)
}

func selectClusters(clusters []model.ScoredCluster, constraints model.Constraints) []model.ScoredCluster {
	qualifying := make([]model.ScoredCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.FinalScore >= constraints.MinLocationScore {
			qualifying = append(qualifying, c)
		}
	}
	if len(qualifying) == 0 {
		qualifying = append(qualifying, clusters...)
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].FinalScore > qualifying[j].FinalScore
	})

	k := constraints.MaxLocationsPerDay
	if k > MaxLocationsAbsolute {
		k = MaxLocationsAbsolute
	}
	if k > len(qualifying) {
		k = len(qualifying)
	}
	return qualifying[:k]
}

type orderedResult struct {
	clusters []model.ScoredCluster
	method   model.OptimizationMethod
	stats    model.OptimizationStats
}

func (o *Optimizer) order(clusters []model.ScoredCluster, start geo.Coordinate) orderedResult {
	k := len(clusters)
	switch {
	case k == 0:
		return orderedResult{method: model.OptimizationEmpty}
	case k == 1:
		return orderedResult{clusters: clusters, method: model.OptimizationSingleLocation}
	case k <= TwoOptThreshold:
		return o.twoOpt(clusters, start)
	default:
		return o.enhancedNearestNeighbor(clusters, start)
	}
}

func clusterCoord(c model.ScoredCluster) geo.Coordinate {
	return geo.Coordinate{Lat: c.CenterLat, Lng: c.CenterLng}
}

func tourDistance(order []model.ScoredCluster, start geo.Coordinate) float64 {
	if len(order) == 0 {
		return 0
	}
	total := geo.HaversineKm(start, clusterCoord(order[0]))
	for i := 1; i < len(order); i++ {
		total += geo.HaversineKm(clusterCoord(order[i-1]), clusterCoord(order[i]))
	}
	total += geo.HaversineKm(clusterCoord(order[len(order)-1]), start)
	return total
}

func nearestNeighborFrom(clusters []model.ScoredCluster, start geo.Coordinate) []model.ScoredCluster {
	remaining := append([]model.ScoredCluster(nil), clusters...)
	order := make([]model.ScoredCluster, 0, len(clusters))
	current := start

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := geo.HaversineKm(current, clusterCoord(remaining[0]))
		for i := 1; i < len(remaining); i++ {
			d := geo.HaversineKm(current, clusterCoord(remaining[i]))
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		order = append(order, remaining[bestIdx])
		current = clusterCoord(remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return order
}

// twoOpt seeds with nearest-neighbor-from-start, then iteratively
// reverses segments that shorten the tour (spec §4.6).
func (o *Optimizer) twoOpt(clusters []model.ScoredCluster, start geo.Coordinate) orderedResult {
	order := nearestNeighborFrom(clusters, start)
	passes := 0

	for passes < twoOptMaxPasses {
		improved := false
		n := len(order)
		for i := 0; i < n-1; i++ {
			for j := i + 2; j < n; j++ {
				candidate := reversedSegment(order, i+1, j)
				if tourDistance(candidate, start) < tourDistance(order, start) {
					order = candidate
					improved = true
				}
			}
		}
		passes++
		if !improved {
			break
		}
	}

	return orderedResult{
		clusters: order,
		method:   model.OptimizationTwoOpt,
		stats:    model.OptimizationStats{PassesRun: passes, CandidatesConsidered: len(clusters)},
	}
}

func reversedSegment(order []model.ScoredCluster, i, j int) []model.ScoredCluster {
	out := append([]model.ScoredCluster(nil), order...)
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// enhancedNearestNeighbor runs nearest-neighbor from the real start and
// from each of the top three clusters, keeping the shortest total (spec
// §4.6).
func (o *Optimizer) enhancedNearestNeighbor(clusters []model.ScoredCluster, start geo.Coordinate) orderedResult {
	candidates := [][]model.ScoredCluster{nearestNeighborFrom(clusters, start)}

	topN := 3
	if topN > len(clusters) {
		topN = len(clusters)
	}
	for i := 0; i < topN; i++ {
		alt := altStartOrder(clusters, i, start)
		candidates = append(candidates, alt)
	}

	best := candidates[0]
	bestDist := tourDistance(best, start)
	for _, c := range candidates[1:] {
		d := tourDistance(c, start)
		if d < bestDist {
			best = c
			bestDist = d
		}
	}

	return orderedResult{
		clusters: best,
		method:   model.OptimizationEnhancedNearestNeighbor,
		stats:    model.OptimizationStats{CandidatesConsidered: len(candidates)},
	}
}

// altStartOrder builds a nearest-neighbor tour that visits clusters[altIdx]
// first (appending a start->that-cluster edge), then nearest-neighbors
// the remainder.
func altStartOrder(clusters []model.ScoredCluster, altIdx int, start geo.Coordinate) []model.ScoredCluster {
	first := clusters[altIdx]
	rest := make([]model.ScoredCluster, 0, len(clusters)-1)
	for i, c := range clusters {
		if i != altIdx {
			rest = append(rest, c)
		}
	}
	tail := nearestNeighborFrom(rest, clusterCoord(first))
	return append([]model.ScoredCluster{first}, tail...)
}

func (o *Optimizer) buildRoute(result orderedResult, start geo.Coordinate) model.Route {
	route := model.Route{
		OptimizationMethod: result.method,
		OptimizationStats:  result.stats,
	}
	if result.method == model.OptimizationEmpty {
		return route
	}

	ordered := make([]*model.ScoredCluster, len(result.clusters))
	for i := range result.clusters {
		c := result.clusters[i]
		ordered[i] = &c
	}
	route.OrderedClusters = ordered

	points := append([]geo.Coordinate{start}, clusterCoords(result.clusters)...)
	points = append(points, start)
	names := append([]string{"Start"}, clusterNames(result.clusters)...)
	names = append(names, "Start")

	segments := make([]model.RouteSegment, 0, len(points)-1)
	cumulative := 0.0
	for i := 1; i < len(points); i++ {
		d := geo.HaversineKm(points[i-1], points[i])
		cumulative += d
		seg := model.RouteSegment{
			SegmentNumber:           i,
			FromName:                names[i-1],
			ToName:                  names[i],
			ToLat:                   points[i].Lat,
			ToLng:                   points[i].Lng,
			DistanceKm:              d,
			EstimatedDriveTimeHours: d / o.averageDrivingSpeedKmh,
			CumulativeDistanceKm:    cumulative,
		}
		if i-1 < len(result.clusters) {
			seg.LocationScore = result.clusters[i-1].FinalScore
			seg.SpeciesDiversity = result.clusters[i-1].Statistics.SpeciesDiversity
		}
		segments = append(segments, seg)
	}
	route.Segments = segments
	route.TotalDistanceKm = cumulative

	if cumulative > 1000 {
		o.logger.Warn("route exceeds 1000km; consider splitting across multiple days", map[string]interface{}{"totalDistanceKm": cumulative})
	}

	return route
}

func clusterCoords(clusters []model.ScoredCluster) []geo.Coordinate {
	out := make([]geo.Coordinate, len(clusters))
	for i, c := range clusters {
		out[i] = clusterCoord(c)
	}
	return out
}

func clusterNames(clusters []model.ScoredCluster) []string {
	out := make([]string, len(clusters))
	for i, c := range clusters {
		out[i] = c.ClusterName
	}
	return out
}
