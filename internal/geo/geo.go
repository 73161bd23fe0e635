// Package geo implements spec §"GeoMath": haversine distance, coordinate
// validation, date-range tests, and region-bounds tests. Grounded on
// original_source/.../utils/geo_utils.py for the bounding-box prefilter
// and coordKey truncation semantics.
package geo

import (
	"fmt"
	"math"
	"time"
)

const earthRadiusKm = 6371.0088

// Coordinate is a lat/lng pair.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Valid reports whether c falls within valid WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// HaversineKm returns the great-circle distance between a and b in
// kilometers.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// QuickRejectBoundingBox does a cheap lat/lng bounding-box test before an
// exact Haversine call is warranted — an optimization borrowed from
// original_source's geo_utils.py, not a change to the exact-distance
// semantics spec.md's Phase D requires. radiusKm is treated generously
// (1 degree latitude ≈ 111km) so it only rejects, never wrongly accepts.
func QuickRejectBoundingBox(center Coordinate, radiusKm float64, candidate Coordinate) bool {
	latDeltaDeg := radiusKm / 111.0
	lngDeltaDeg := radiusKm / (111.320 * math.Max(0.1, math.Cos(center.Lat*math.Pi/180)))
	if math.Abs(candidate.Lat-center.Lat) > latDeltaDeg {
		return true
	}
	if math.Abs(candidate.Lng-center.Lng) > lngDeltaDeg {
		return true
	}
	return false
}

// CoordKey truncates (never rounds) lat/lng to 4 decimal places (~11m),
// matching spec.md's load-bearing dedup anchor: 42.34995 and 42.35005
// must produce distinct keys.
func CoordKey(c Coordinate) string {
	return fmt.Sprintf("%s,%s", truncate4(c.Lat), truncate4(c.Lng))
}

func truncate4(v float64) string {
	scaled := v * 10000
	truncated := math.Trunc(scaled) / 10000
	return fmt.Sprintf("%.4f", truncated)
}

// Bounds is a simple lat/lng rectangle for the region-bounds table.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether c falls within b.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// RegionBounds is spec §9's deliberately sparse table: a handful of US
// states. Unlisted region codes are treated as "always within region" by
// callers (ConstraintFilter), per the recorded Open Question decision.
var RegionBounds = map[string]Bounds{
	"US-MA": {MinLat: 41.23, MaxLat: 42.90, MinLng: -73.51, MaxLng: -69.93},
	"US-CA": {MinLat: 32.53, MaxLat: 42.01, MinLng: -124.48, MaxLng: -114.13},
	"US-TX": {MinLat: 25.84, MaxLat: 36.50, MinLng: -106.65, MaxLng: -93.51},
	"US-NY": {MinLat: 40.49, MaxLat: 45.01, MinLng: -79.76, MaxLng: -71.78},
	"US-FL": {MinLat: 24.52, MaxLat: 31.00, MinLng: -87.63, MaxLng: -80.03},
}

// WithinRegion tests coordinate c against the bounds table entry for
// regionCode. If no entry exists, it returns true (spec §9's sparse-table
// fallback).
func WithinRegion(regionCode string, c Coordinate) bool {
	if regionCode == "" {
		return true
	}
	bounds, ok := RegionBounds[regionCode]
	if !ok {
		return true
	}
	return bounds.Contains(c)
}

const obsTimeLayout1 = "2006-01-02 15:04"
const obsTimeLayout2 = "2006-01-02"

// ParseObservationTime parses an eBird-style "YYYY-MM-DD HH:MM" or
// date-only "YYYY-MM-DD" timestamp.
func ParseObservationTime(s string) (time.Time, error) {
	if t, err := time.Parse(obsTimeLayout1, s); err == nil {
		return t, nil
	}
	return time.Parse(obsTimeLayout2, s)
}

// WithinDateRange reports whether obsTime falls within [start, end]
// inclusive.
func WithinDateRange(obsTime, start, end time.Time) bool {
	return !obsTime.Before(start) && !obsTime.After(end)
}

// WithinDaysBack reports whether obsTime is within daysBack days of now.
func WithinDaysBack(obsTime, now time.Time, daysBack int) bool {
	cutoff := now.AddDate(0, 0, -daysBack)
	return !obsTime.Before(cutoff) && !obsTime.After(now)
}

// ClampDaysBack enforces spec §6's cap: daysBack > 30 clamps to 30.
func ClampDaysBack(daysBack int) int {
	if daysBack > 30 {
		return 30
	}
	if daysBack < 0 {
		return 0
	}
	return daysBack
}

// ClampDistanceKm enforces spec §6's cap: distance > 50km clamps to 50.
func ClampDistanceKm(distKm float64) float64 {
	if distKm > 50 {
		return 50
	}
	if distKm < 0 {
		return 0
	}
	return distKm
}

// ClampMaxResults enforces spec §6's cap: maxResults > 3000 clamps to 3000.
func ClampMaxResults(maxResults int) int {
	if maxResults > 3000 {
		return 3000
	}
	if maxResults < 0 {
		return 0
	}
	return maxResults
}
