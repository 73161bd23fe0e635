package model

// EnrichedSighting is Stage 3's output: a Sighting plus compliance
// flags. It embeds Sighting by value so every field of the input
// survives byte-identical (spec's core invariant, §9).
type EnrichedSighting struct {
	Sighting

	HasValidGps            bool
	WithinTravelRadius     bool
	WithinDateRange        bool
	WithinRegion           bool
	QualityCompliant       bool
	IsDuplicate            bool
	DailyDistanceCompliant bool
	MeetsAllConstraints    bool

	DistanceFromStartKm     *float64
	EstimatedTravelTimeHours *float64
}

// ComplianceTally counts how many sightings passed each individual flag.
type ComplianceTally struct {
	HasValidGps            int
	WithinTravelRadius     int
	WithinDateRange        int
	WithinRegion           int
	QualityCompliant       int
	Duplicates             int
	DailyDistanceCompliant int
}

// ComplianceSummary is Stage 3's stats block.
type ComplianceSummary struct {
	TotalSightings      int
	FullyCompliantCount int
	Tally               ComplianceTally
}

// FullyCompliantPercentage reports fullyCompliantCount as a fraction of
// total sightings, 0 when there are none.
func (s ComplianceSummary) FullyCompliantPercentage() float64 {
	if s.TotalSightings == 0 {
		return 0
	}
	return float64(s.FullyCompliantCount) / float64(s.TotalSightings)
}
