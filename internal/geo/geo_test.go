package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_KnownDistance(t *testing.T) {
	boston := Coordinate{Lat: 42.3601, Lng: -71.0589}
	worcester := Coordinate{Lat: 42.2626, Lng: -71.8023}

	d := HaversineKm(boston, worcester)
	assert.InDelta(t, 63.0, d, 5.0)
}

func TestHaversineKm_SamePoint(t *testing.T) {
	p := Coordinate{Lat: 42.36, Lng: -71.06}
	assert.InDelta(t, 0.0, HaversineKm(p, p), 1e-9)
}

func TestCoordKey_TruncatesNotRounds(t *testing.T) {
	a := Coordinate{Lat: 42.34995, Lng: -71.05}
	b := Coordinate{Lat: 42.35005, Lng: -71.05}

	assert.NotEqual(t, CoordKey(a), CoordKey(b), "truncation must not merge distinct 5th-decimal coordinates")
}

func TestCoordKey_FifthDecimalDifferenceSameKey(t *testing.T) {
	a := Coordinate{Lat: 42.123456, Lng: -71.654321}
	b := Coordinate{Lat: 42.123499, Lng: -71.654321}
	assert.Equal(t, CoordKey(a), CoordKey(b), "same first four decimals must produce identical coordKey")
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 0, Lng: 0}.Valid())
	assert.True(t, Coordinate{Lat: 90, Lng: 180}.Valid())
	assert.False(t, Coordinate{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lng: -181}.Valid())
}

func TestWithinRegion_KnownAndUnknown(t *testing.T) {
	boston := Coordinate{Lat: 42.36, Lng: -71.06}
	assert.True(t, WithinRegion("US-MA", boston))
	assert.False(t, WithinRegion("US-CA", boston))
	assert.True(t, WithinRegion("US-ZZ", boston), "unlisted region codes default to true")
	assert.True(t, WithinRegion("", boston))
}

func TestParseObservationTime_BothLayouts(t *testing.T) {
	t1, err := ParseObservationTime("2026-03-05 08:30")
	assert.NoError(t, err)
	assert.Equal(t, 2026, t1.Year())

	t2, err := ParseObservationTime("2026-03-05")
	assert.NoError(t, err)
	assert.Equal(t, time.March, t2.Month())
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 30, ClampDaysBack(45))
	assert.Equal(t, 10, ClampDaysBack(10))
	assert.Equal(t, 50.0, ClampDistanceKm(75))
	assert.Equal(t, 3000, ClampMaxResults(5000))
}

func TestWithinDaysBack(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -5)
	stale := now.AddDate(0, 0, -40)

	assert.True(t, WithinDaysBack(recent, now, 14))
	assert.False(t, WithinDaysBack(stale, now, 14))
}

func TestWithinDateRange(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inside := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	assert.True(t, WithinDateRange(inside, start, end))
	assert.False(t, WithinDateRange(outside, start, end))
}

func TestQuickRejectBoundingBox(t *testing.T) {
	center := Coordinate{Lat: 42.36, Lng: -71.06}
	near := Coordinate{Lat: 42.37, Lng: -71.05}
	far := Coordinate{Lat: 50.0, Lng: -71.06}

	assert.False(t, QuickRejectBoundingBox(center, 15, near))
	assert.True(t, QuickRejectBoundingBox(center, 15, far))
}
