// Package constraints implements ConstraintFilter (spec §4.3): it
// enriches each Sighting in place with compliance flags against a
// Constraints record. Grounded on the teacher's straightforward,
// allocation-light filter style (pkg/orchestration/executor.go's
// sequential aggregation loop), since this stage is single-threaded and
// order-sensitive by spec §5.
package constraints

import (
	"time"

	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/model"
)

// Filter implements ConstraintFilter.
type Filter struct {
	averageDrivingSpeedKmh float64
}

// New constructs a Filter. averageDrivingSpeedKmh <= 0 uses 60 km/h.
func New(averageDrivingSpeedKmh float64) *Filter {
	if averageDrivingSpeedKmh <= 0 {
		averageDrivingSpeedKmh = 60
	}
	return &Filter{averageDrivingSpeedKmh: averageDrivingSpeedKmh}
}

// Apply derives compliance flags for every sighting, in order, since
// duplicate detection depends on input order (spec §4.3, §5).
func (f *Filter) Apply(sightings []model.Sighting, c model.Constraints) ([]model.EnrichedSighting, model.ComplianceSummary) {
	c = c.WithDefaults()

	out := make([]model.EnrichedSighting, 0, len(sightings))
	seen := make(map[string]struct{})
	summary := model.ComplianceSummary{TotalSightings: len(sightings)}

	for _, s := range sightings {
		e := model.EnrichedSighting{Sighting: s}

		e.HasValidGps = hasValidGps(s)

		if e.HasValidGps && c.StartLocation != nil {
			dist := geo.HaversineKm(*c.StartLocation, geo.Coordinate{Lat: *s.Lat, Lng: *s.Lng})
			e.DistanceFromStartKm = &dist
			radius := c.MaxTravelRadiusKm
			if radius <= 0 {
				radius = c.MaxDailyDistanceKm
			}
			e.WithinTravelRadius = dist <= float64(radius)
			travelHours := dist / f.averageDrivingSpeedKmh
			e.EstimatedTravelTimeHours = &travelHours
		} else if e.HasValidGps {
			e.WithinTravelRadius = true
		} else {
			e.WithinTravelRadius = false
		}

		if e.HasValidGps {
			e.WithinRegion = geo.WithinRegion(c.RegionCode, coordOf(s))
		} else {
			e.WithinRegion = false
		}

		e.WithinDateRange = withinDateRange(s.ObsDt, c)

		e.QualityCompliant = qualityCompliant(s, c.MinObservationQuality)

		dupKey := s.LocID + "|" + s.SpeciesCode + "|" + s.ObsDt
		if _, ok := seen[dupKey]; ok {
			e.IsDuplicate = true
			summary.Tally.Duplicates++
		} else {
			seen[dupKey] = struct{}{}
		}

		if e.EstimatedTravelTimeHours != nil {
			e.DailyDistanceCompliant = *e.EstimatedTravelTimeHours <= 8
		} else {
			e.DailyDistanceCompliant = true
		}

		e.MeetsAllConstraints = e.HasValidGps && e.WithinTravelRadius && e.WithinDateRange &&
			e.WithinRegion && e.QualityCompliant && !e.IsDuplicate && e.DailyDistanceCompliant

		tallyFlag(&summary.Tally, e)
		if e.MeetsAllConstraints {
			summary.FullyCompliantCount++
		}

		out = append(out, e)
	}

	return out, summary
}

func tallyFlag(t *model.ComplianceTally, e model.EnrichedSighting) {
	if e.HasValidGps {
		t.HasValidGps++
	}
	if e.WithinTravelRadius {
		t.WithinTravelRadius++
	}
	if e.WithinDateRange {
		t.WithinDateRange++
	}
	if e.WithinRegion {
		t.WithinRegion++
	}
	if e.QualityCompliant {
		t.QualityCompliant++
	}
	if e.DailyDistanceCompliant {
		t.DailyDistanceCompliant++
	}
}

func hasValidGps(s model.Sighting) bool {
	if s.Lat == nil || s.Lng == nil {
		return false
	}
	return *s.Lat >= -90 && *s.Lat <= 90 && *s.Lng >= -180 && *s.Lng <= 180
}

func coordOf(s model.Sighting) geo.Coordinate {
	if s.Lat == nil || s.Lng == nil {
		return geo.Coordinate{}
	}
	return geo.Coordinate{Lat: *s.Lat, Lng: *s.Lng}
}

func withinDateRange(obsDt string, c model.Constraints) bool {
	t, err := geo.ParseObservationTime(obsDt)
	if err != nil {
		return false
	}
	if c.DateRange != nil {
		start, errStart := geo.ParseObservationTime(c.DateRange.Start)
		end, errEnd := geo.ParseObservationTime(c.DateRange.End)
		if errStart != nil || errEnd != nil {
			return false
		}
		return geo.WithinDateRange(t, start, end)
	}
	return geo.WithinDaysBack(t, time.Now(), c.DaysBack)
}

// qualityCompliant applies Constraints.minObservationQuality. obsValid
// absent defaults to true (spec §9 open question: "any" and "valid"
// agree on records lacking the field).
func qualityCompliant(s model.Sighting, q model.ObservationQuality) bool {
	switch q {
	case model.QualityValid:
		return s.ObsValid == nil || *s.ObsValid
	case model.QualityReviewed:
		return s.ObsReviewed != nil && *s.ObsReviewed
	default:
		return true
	}
}
