package model

// HotspotMetadata carries the matched official hotspot's details onto a
// Location (spec §4.4 Phase C).
type HotspotMetadata struct {
	LocID              string
	Name               string
	Subnational1Code   string
	Subnational2Code   string
	NumSpeciesAllTime  int
	LatestObsDate      string
	DistanceToHotspotKm float64
}

// CoordinateQuality grades how trustworthy a Location's coordinates are
// for routing, used by LocationScorer's accessibilityScore.
type CoordinateQuality string

const (
	CoordinateQualityHigh   CoordinateQuality = "high"
	CoordinateQualityMedium CoordinateQuality = "medium"
)

// Location is Stage 4's intermediate dedup unit, keyed by coordKey
// (lat/lng truncated to 4 decimals, spec §3/§9 — a load-bearing
// invariant that must never be rounded).
type Location struct {
	CoordKey string
	Lat      float64
	Lng      float64

	PrimaryLocID   string
	PrimaryLocName string
	AlternateLocIDs   map[string]struct{}
	AlternateLocNames map[string]struct{}

	SightingCount      int
	SpeciesCodes       map[string]struct{}
	ObservationDates   map[string]struct{}

	IsHotspot       bool
	HotspotMetadata *HotspotMetadata
}

// NewLocation seeds an empty Location at the given coordKey/coordinates.
func NewLocation(coordKey string, lat, lng float64) *Location {
	return &Location{
		CoordKey:          coordKey,
		Lat:               lat,
		Lng:               lng,
		AlternateLocIDs:   map[string]struct{}{},
		AlternateLocNames: map[string]struct{}{},
		SpeciesCodes:      map[string]struct{}{},
		ObservationDates:  map[string]struct{}{},
	}
}
