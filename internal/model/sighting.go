package model

import "time"

// FetchMethod records which ObservationClient strategy produced a
// Sighting (spec §4.2).
type FetchMethod string

const (
	FetchNearbyObservations  FetchMethod = "nearbyObservations"
	FetchSpeciesObservations FetchMethod = "speciesObservations"
)

// Sighting is Stage 2's output record: external observation-service
// fields preserved verbatim, plus provenance added by SightingsFetcher.
// Every field here must survive unchanged into EnrichedSighting — the
// "enrichment in place" invariant (spec §3, §9).
type Sighting struct {
	SpeciesCode     string
	CommonName      string
	ScientificName  string
	LocID           string
	LocName         string
	Lat             *float64
	Lng             *float64
	ObsDt           string
	HowMany         *int
	ObsValid        *bool
	ObsReviewed     *bool
	LocationPrivate bool

	// Provenance, added by Stage 2.
	FetchMethod         FetchMethod
	FetchTimestamp       time.Time
	ValidationConfidence float64
	ValidationMethod     ValidationMethod
	OriginalSpeciesName  string
	SeasonalNotes        string
	BehavioralNotes      string
}

// FetchMethodStats counts how many sightings each strategy produced.
type FetchMethodStats map[FetchMethod]int

// SightingsFetchStats is Stage 2's stats block.
type SightingsFetchStats struct {
	TotalSpecies      int
	SuccessfulFetches int
	EmptyResults      int
	APIErrors         int
	TotalObservations int
	UniqueLocations   int
	FetchMethodStats  FetchMethodStats

	// FatalAuthFailure is set when every species request failed with an
	// observation-service auth error, the one ObservationServiceError
	// subtype spec §7 names as fatal to the whole pipeline.
	FatalAuthFailure bool
}
