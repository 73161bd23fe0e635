package model

// ClusterStatistics is the descriptive stats block attached to every
// HotspotCluster (spec §3).
type ClusterStatistics struct {
	LocationCount         int
	SightingCount         int
	SpeciesDiversity      int
	HotspotCount          int
	ClusterRadiusKm       float64
	MostRecentObservation string
	SpeciesCodes          []string // sorted
}

// ClusterAccessibility summarizes how easy a cluster is to reach.
type ClusterAccessibility struct {
	HasHotspot            bool
	AvgTravelTimeEstimate *float64
	CoordinateQuality     CoordinateQuality
}

// HotspotCluster is Stage 4's output record.
type HotspotCluster struct {
	ClusterID    string
	ClusterName  string
	CenterLat    float64
	CenterLng    float64
	Locations    []*Location
	Sightings    []*EnrichedSighting
	Statistics   ClusterStatistics
	Accessibility ClusterAccessibility
}

// ClusteringStats is Stage 4's top-level stats block.
type ClusteringStats struct {
	TotalLocations    int
	TotalClusters     int
	HotspotsDiscovered int
	UnassignedInput   int
}

// ScoringMethod records whether a cluster's score used the LLM
// refinement path or the algorithmic base score only (spec §3/§4.5).
type ScoringMethod string

const (
	ScoringAlgorithmic ScoringMethod = "algorithmic"
	ScoringLLMEnhanced ScoringMethod = "llmEnhanced"
)

// ClusterScoring holds the component scores and metadata behind a
// ScoredCluster's finalScore.
type ClusterScoring struct {
	DiversityScore     float64
	RecencyScore       float64
	HotspotScore       float64
	AccessibilityScore float64
	BaseScore          float64
	TargetSpeciesFound int
	TotalSpeciesFound  int
	ScoringMethod      ScoringMethod
	HabitatScore       *float64
}

// LLMEvaluation is the parsed result of LocationScorer's optional
// habitat-refinement prompt (spec §4.5).
type LLMEvaluation struct {
	HabitatScore float64
	Reasoning    string
	BestTime     string
	Tips         string
}

// ScoredCluster is Stage 5's output record.
type ScoredCluster struct {
	HotspotCluster
	Scoring        ClusterScoring
	LLMEvaluation  *LLMEvaluation
	BaseScore      float64
	FinalScore     float64
}

// ScoringStats is Stage 5's top-level stats block.
type ScoringStats struct {
	TotalClusters   int
	LLMRefined      int
	LLMFailures     int
}
