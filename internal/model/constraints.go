// Package model holds the data records shared across pipeline stages:
// the Stage-1-through-7 record types and the Constraints input record
// (spec §3, §6 "Pipeline input record"). Kept as its own package, the
// way the teacher's core package hubs shared Tool/Capability types, so
// stage packages can depend on the records without depending on each
// other.
package model

import "github.com/aviantrail/tripplanner/internal/geo"

// DateRange is an explicit start/end window for observation filtering.
type DateRange struct {
	Start string // "YYYY-MM-DD"
	End   string
}

// ObservationQuality selects which sightings ConstraintFilter treats as
// quality-compliant.
type ObservationQuality string

const (
	QualityAny      ObservationQuality = "any"
	QualityValid    ObservationQuality = "valid"
	QualityReviewed ObservationQuality = "reviewed"
)

// Constraints is the pipeline's input record (spec §6), seeded once into
// the shared store and read by every stage.
type Constraints struct {
	StartLocation         *geo.Coordinate
	RegionCode            string
	DaysBack              int
	MaxDailyDistanceKm    int
	MaxTravelRadiusKm     int
	DateRange             *DateRange
	MinObservationQuality ObservationQuality
	MaxLocationsPerDay    int
	MinLocationScore      float64
	TripDurationDays      int
}

// WithDefaults returns a copy of c with spec §6's documented defaults
// applied to zero-valued fields.
func (c Constraints) WithDefaults() Constraints {
	out := c
	if out.DaysBack <= 0 {
		out.DaysBack = 7
	}
	if out.DaysBack > 30 {
		out.DaysBack = 30
	}
	if out.MaxDailyDistanceKm <= 0 {
		out.MaxDailyDistanceKm = 200
	}
	if out.MaxTravelRadiusKm <= 0 {
		out.MaxTravelRadiusKm = out.MaxDailyDistanceKm
	}
	if out.MinObservationQuality == "" {
		out.MinObservationQuality = QualityAny
	}
	if out.MaxLocationsPerDay <= 0 {
		out.MaxLocationsPerDay = 8
	}
	if out.MinLocationScore <= 0 {
		out.MinLocationScore = 0.3
	}
	if out.TripDurationDays <= 0 {
		out.TripDurationDays = 1
	}
	return out
}
