package ebird

import (
	"context"
	"fmt"

	"github.com/aviantrail/tripplanner/internal/geo"
)

// StubClient is an in-memory Client for tests, grounded on the teacher's
// core/mock_discovery.go canned-fake pattern. Each method returns whatever
// was pre-loaded, or the configured error.
type StubClient struct {
	Taxonomy  []TaxonomyEntry
	Obs       []Observation
	Hotspots  []Hotspot
	SppList   []string
	Err       error
	CallLog   []string
}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) FetchTaxonomy(ctx context.Context) ([]TaxonomyEntry, error) {
	s.CallLog = append(s.CallLog, "FetchTaxonomy")
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Taxonomy, nil
}

func (s *StubClient) RecentObservationsInRegion(ctx context.Context, regionCode string, daysBack int, includeProvisional bool) ([]Observation, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("RecentObservationsInRegion(%s)", regionCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Obs, nil
}

func (s *StubClient) NearbyObservations(ctx context.Context, center geo.Coordinate, distKm float64, daysBack int, speciesCode string) ([]Observation, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("NearbyObservations(%s)", speciesCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Obs, nil
}

func (s *StubClient) SpeciesObservationsInRegion(ctx context.Context, regionCode, speciesCode string, daysBack int, hotspotOnly bool) ([]Observation, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("SpeciesObservationsInRegion(%s,%s)", regionCode, speciesCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Obs, nil
}

func (s *StubClient) NearestObservationsOfSpecies(ctx context.Context, speciesCode string, center geo.Coordinate, daysBack int, distKm float64, maxResults int) ([]Observation, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("NearestObservationsOfSpecies(%s)", speciesCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Obs, nil
}

func (s *StubClient) RegionalHotspots(ctx context.Context, regionCode string) ([]Hotspot, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("RegionalHotspots(%s)", regionCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Hotspots, nil
}

func (s *StubClient) NearbyHotspots(ctx context.Context, center geo.Coordinate, distKm float64) ([]Hotspot, error) {
	s.CallLog = append(s.CallLog, "NearbyHotspots")
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Hotspots, nil
}

func (s *StubClient) HotspotInfo(ctx context.Context, locID string) (*Hotspot, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("HotspotInfo(%s)", locID))
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.Hotspots {
		if s.Hotspots[i].LocID == locID {
			return &s.Hotspots[i], nil
		}
	}
	return nil, fmt.Errorf("hotspot %s not found", locID)
}

func (s *StubClient) SpeciesListInRegion(ctx context.Context, regionCode string) ([]string, error) {
	s.CallLog = append(s.CallLog, fmt.Sprintf("SpeciesListInRegion(%s)", regionCode))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.SppList, nil
}

var _ Client = (*StubClient)(nil)
var _ Client = (*HTTPClient)(nil)
