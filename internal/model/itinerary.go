package model

// ItineraryMethod records which ItineraryRenderer path produced the
// markdown (spec §4.7).
type ItineraryMethod string

const (
	ItineraryLLMEnhanced     ItineraryMethod = "llmEnhanced"
	ItineraryTemplateFallback ItineraryMethod = "templateFallback"
	ItineraryNone            ItineraryMethod = "none"
)

// ItineraryStats is Stage 7's stats block.
type ItineraryStats struct {
	Method                   ItineraryMethod
	LLMAttempts              int
	ContentSections          int
	TotalSpecies             int
	TotalLocations           int
	EstimatedTripDurationHours float64
}

// Itinerary is Stage 7's output record.
type Itinerary struct {
	Markdown string
	Stats    ItineraryStats
}
