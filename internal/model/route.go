package model

// OptimizationMethod records which RouteOptimizer algorithm produced a
// Route (spec §3/§4.6).
type OptimizationMethod string

const (
	OptimizationEmpty                  OptimizationMethod = "empty"
	OptimizationSingleLocation         OptimizationMethod = "singleLocation"
	OptimizationTwoOpt                 OptimizationMethod = "twoOpt"
	OptimizationEnhancedNearestNeighbor OptimizationMethod = "enhancedNearestNeighbor"
	OptimizationFallbackScoreOrder     OptimizationMethod = "fallbackScoreOrder"
)

// RouteSegment is one leg of a Route (spec §3).
type RouteSegment struct {
	SegmentNumber           int
	FromName                string
	ToName                  string
	ToLat                   float64
	ToLng                   float64
	DistanceKm              float64
	EstimatedDriveTimeHours float64
	CumulativeDistanceKm    float64
	LocationScore           float64
	SpeciesDiversity        int
}

// OptimizationStats records how RouteOptimizer arrived at a Route.
type OptimizationStats struct {
	CandidatesConsidered int
	PassesRun            int
	FellBackToScoreOrder bool
}

// Route is Stage 6's output record.
type Route struct {
	OrderedClusters    []*ScoredCluster
	TotalDistanceKm    float64
	OptimizationMethod OptimizationMethod
	Segments           []RouteSegment
	OptimizationStats  OptimizationStats
}
