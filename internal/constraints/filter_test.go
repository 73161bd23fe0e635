package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
func ptrB(v bool) *bool       { return &v }

// TestApply_SixSightingScenario mirrors spec's end-to-end scenario 5:
// Boston, Cambridge, Worcester (~65km), a month-old Boston sighting, a
// null-coords sighting, and a duplicate of the Boston row.
func TestApply_SixSightingScenario(t *testing.T) {
	boston := geo.Coordinate{Lat: 42.3601, Lng: -71.0589}
	cambridge := model.Sighting{LocID: "L-cambridge", SpeciesCode: "norcar", Lat: ptrF(42.3736), Lng: ptrF(-71.1097), ObsDt: today(), ObsValid: ptrB(true)}
	bostonSighting := model.Sighting{LocID: "L-boston", SpeciesCode: "norcar", Lat: ptrF(boston.Lat), Lng: ptrF(boston.Lng), ObsDt: today(), ObsValid: ptrB(true)}
	worcester := model.Sighting{LocID: "L-worcester", SpeciesCode: "norcar", Lat: ptrF(42.2626), Lng: ptrF(-71.8023), ObsDt: today(), ObsValid: ptrB(true)}
	monthOldBoston := model.Sighting{LocID: "L-boston", SpeciesCode: "norcar", Lat: ptrF(boston.Lat), Lng: ptrF(boston.Lng), ObsDt: monthAgo(), ObsValid: ptrB(true)}
	nullCoords := model.Sighting{LocID: "L-unknown", SpeciesCode: "norcar", ObsDt: today(), ObsValid: ptrB(true)}
	duplicateBoston := bostonSighting // identical locId+speciesCode+obsDt

	sightings := []model.Sighting{bostonSighting, cambridge, worcester, monthOldBoston, nullCoords, duplicateBoston}

	c := model.Constraints{
		StartLocation:         &boston,
		MaxTravelRadiusKm:     50,
		DaysBack:              14,
		MinObservationQuality: model.QualityValid,
	}

	f := New(0)
	enriched, summary := f.Apply(sightings, c)

	require.Len(t, enriched, 6)
	assert.Equal(t, 2, summary.FullyCompliantCount, "Boston + Cambridge should be fully compliant")

	assert.False(t, enriched[2].WithinTravelRadius, "Worcester is ~65km away, beyond the 50km radius")
	assert.False(t, enriched[3].WithinDateRange, "a month-old sighting falls outside a 14-day window")
	assert.False(t, enriched[4].HasValidGps, "missing lat/lng must fail GPS validity")
	assert.False(t, enriched[4].WithinTravelRadius, "a sighting with no GPS can't be known to be within radius")
	assert.False(t, enriched[4].WithinRegion, "a sighting with no GPS can't be known to be within region")
	assert.True(t, enriched[5].IsDuplicate, "identical locId+speciesCode+obsDt seen earlier must be flagged")
}

func TestApply_EmptyInput_ProducesEmptyOutput(t *testing.T) {
	f := New(0)
	enriched, summary := f.Apply(nil, model.Constraints{})
	assert.Empty(t, enriched)
	assert.Equal(t, 0, summary.TotalSightings)
}

func TestApply_NoStartLocation_AlwaysWithinTravelRadius(t *testing.T) {
	s := model.Sighting{LocID: "L1", SpeciesCode: "norcar", Lat: ptrF(42.36), Lng: ptrF(-71.06), ObsDt: today()}
	f := New(0)
	enriched, _ := f.Apply([]model.Sighting{s}, model.Constraints{RegionCode: "US-MA", DaysBack: 14})
	assert.True(t, enriched[0].WithinTravelRadius)
	assert.Nil(t, enriched[0].DistanceFromStartKm)
}

func TestApply_DuplicateDetectionIsOrderDeterministic(t *testing.T) {
	s := model.Sighting{LocID: "L1", SpeciesCode: "norcar", Lat: ptrF(42.36), Lng: ptrF(-71.06), ObsDt: today(), ObsValid: ptrB(true)}
	sightings := []model.Sighting{s, s, s}
	f := New(0)

	first, _ := f.Apply(sightings, model.Constraints{DaysBack: 14})
	second, _ := f.Apply(sightings, model.Constraints{DaysBack: 14})

	for i := range first {
		assert.Equal(t, first[i].IsDuplicate, second[i].IsDuplicate)
	}
	assert.False(t, first[0].IsDuplicate)
	assert.True(t, first[1].IsDuplicate)
	assert.True(t, first[2].IsDuplicate)
}

func TestApply_QualityComplianceModes(t *testing.T) {
	valid := model.Sighting{LocID: "L1", SpeciesCode: "a", ObsDt: today(), ObsValid: ptrB(true), ObsReviewed: ptrB(false)}
	invalid := model.Sighting{LocID: "L2", SpeciesCode: "b", ObsDt: today(), ObsValid: ptrB(false), ObsReviewed: ptrB(false)}

	f := New(0)

	any, _ := f.Apply([]model.Sighting{valid, invalid}, model.Constraints{MinObservationQuality: model.QualityAny, DaysBack: 14})
	assert.True(t, any[0].QualityCompliant)
	assert.True(t, any[1].QualityCompliant)

	strict, _ := f.Apply([]model.Sighting{valid, invalid}, model.Constraints{MinObservationQuality: model.QualityValid, DaysBack: 14})
	assert.True(t, strict[0].QualityCompliant)
	assert.False(t, strict[1].QualityCompliant)
}

func TestApply_EveryFieldOfInputSurvivesUnchanged(t *testing.T) {
	s := model.Sighting{
		SpeciesCode: "norcar", CommonName: "Northern Cardinal", LocID: "L1", LocName: "Park",
		Lat: ptrF(42.36), Lng: ptrF(-71.06), ObsDt: today(), HowMany: ptrI(3),
	}
	f := New(0)
	enriched, _ := f.Apply([]model.Sighting{s}, model.Constraints{DaysBack: 14})
	assert.Equal(t, s, enriched[0].Sighting, "every Stage 2 field must exist unchanged in the Stage 3 output")
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func monthAgo() string {
	return time.Now().AddDate(0, -1, 0).Format("2006-01-02")
}
