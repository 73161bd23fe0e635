// Package scoring implements LocationScorer (spec §4.5): a fixed
// weighted-component base score plus an optional best-effort LLM
// habitat refinement over the top ten clusters. Grounded on the
// teacher's ai/client.go single-shot-completion pattern for the LLM
// call and on its lenient-parsing style for untrusted model output.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
)

const (
	weightDiversity     = 0.40
	weightRecency       = 0.25
	weightHotspot       = 0.20
	weightAccessibility = 0.15

	llmRefinementCount = 10
)

// Scorer implements LocationScorer.
type Scorer struct {
	llm    llm.Client
	logger core.Logger
}

// New constructs a Scorer. llmClient may be nil: Score then always uses
// the algorithmic path (spec §6: LLM absence degrades Stage 5 cleanly).
func New(llmClient llm.Client, logger core.Logger) *Scorer {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Scorer{llm: llmClient, logger: logger}
}

// Score computes a ScoredCluster for every HotspotCluster, then applies
// the best-effort LLM refinement to the top ten by base score.
func (s *Scorer) Score(ctx context.Context, clusters []model.HotspotCluster, targets []model.TargetSpecies, constraints model.Constraints) ([]model.ScoredCluster, model.ScoringStats) {
	targetSet := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t.SpeciesCode] = struct{}{}
	}

	scored := make([]model.ScoredCluster, 0, len(clusters))
	for _, c := range clusters {
		scoring := baseScore(c, targetSet)
		scored = append(scored, model.ScoredCluster{
			HotspotCluster: c,
			Scoring:        scoring,
			BaseScore:      scoring.BaseScore,
			FinalScore:     scoring.BaseScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].BaseScore > scored[j].BaseScore
	})

	stats := model.ScoringStats{TotalClusters: len(scored)}

	if s.llm != nil {
		refineLimit := llmRefinementCount
		if refineLimit > len(scored) {
			refineLimit = len(scored)
		}
		for i := 0; i < refineLimit; i++ {
			eval, err := s.evaluateHabitat(ctx, scored[i], targets)
			if err != nil {
				stats.LLMFailures++
				s.logger.Debug("llm habitat refinement failed", map[string]interface{}{"cluster": scored[i].ClusterID, "error": err.Error()})
				continue
			}
			stats.LLMRefined++
			habitat := eval.HabitatScore
			scored[i].LLMEvaluation = eval
			scored[i].Scoring.HabitatScore = &habitat
			scored[i].Scoring.ScoringMethod = model.ScoringLLMEnhanced
			scored[i].FinalScore = 0.7*scored[i].BaseScore + 0.3*habitat
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	return scored, stats
}

func baseScore(c model.HotspotCluster, targetSet map[string]struct{}) model.ClusterScoring {
	diversity, targetFound := diversityScore(c, targetSet)
	recency := recencyScore(c.Statistics.MostRecentObservation)
	hotspot := hotspotScore(c)
	accessibility := accessibilityScore(c)

	base := weightDiversity*diversity + weightRecency*recency + weightHotspot*hotspot + weightAccessibility*accessibility

	return model.ClusterScoring{
		DiversityScore:     diversity,
		RecencyScore:       recency,
		HotspotScore:       hotspot,
		AccessibilityScore: accessibility,
		BaseScore:          base,
		TargetSpeciesFound: targetFound,
		TotalSpeciesFound:  c.Statistics.SpeciesDiversity,
		ScoringMethod:      model.ScoringAlgorithmic,
	}
}

func diversityScore(c model.HotspotCluster, targetSet map[string]struct{}) (float64, int) {
	total := c.Statistics.SpeciesDiversity
	if len(targetSet) == 0 {
		return min1(float64(total) / 50), 0
	}

	found := 0
	for _, code := range c.Statistics.SpeciesCodes {
		if _, ok := targetSet[code]; ok {
			found++
		}
	}
	targetCoverage := float64(found) / float64(len(targetSet))
	diversityBonus := min(float64(total)/30, 0.5)
	return min1(targetCoverage + diversityBonus), found
}

func recencyScore(mostRecentObs string) float64 {
	if mostRecentObs == "" {
		return 0.3
	}
	t, err := parseObsDate(mostRecentObs)
	if err != nil {
		return 0.3
	}
	days := time.Since(t).Hours() / 24
	switch {
	case days <= 3:
		return 1.0
	case days <= 7:
		return 0.8
	case days <= 14:
		return 0.6
	case days <= 30:
		return 0.4
	default:
		return 0.2
	}
}

func parseObsDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func hotspotScore(c model.HotspotCluster) float64 {
	if !c.Accessibility.HasHotspot {
		return 0.2
	}
	score := 0.6
	maxSpecies := 0
	for _, loc := range c.Locations {
		if loc.HotspotMetadata != nil && loc.HotspotMetadata.NumSpeciesAllTime > maxSpecies {
			maxSpecies = loc.HotspotMetadata.NumSpeciesAllTime
		}
	}
	switch {
	case maxSpecies > 200:
		score += 0.3
	case maxSpecies > 100:
		score += 0.2
	case maxSpecies > 50:
		score += 0.1
	}
	for _, loc := range c.Locations {
		if loc.HotspotMetadata != nil && loc.HotspotMetadata.DistanceToHotspotKm == 0 {
			score += 0.1
			break
		}
	}
	return min1(score)
}

func accessibilityScore(c model.HotspotCluster) float64 {
	score := 0.5
	if c.Accessibility.CoordinateQuality == model.CoordinateQualityHigh {
		score = 0.7
	}
	if c.Accessibility.AvgTravelTimeEstimate != nil {
		switch {
		case *c.Accessibility.AvgTravelTimeEstimate <= 1:
			score += 0.2
		case *c.Accessibility.AvgTravelTimeEstimate <= 2:
			score += 0.1
		case *c.Accessibility.AvgTravelTimeEstimate > 4:
			score -= 0.2
		}
	}
	if c.Statistics.LocationCount > 1 && c.Statistics.SightingCount > 5 {
		score += 0.1
	}
	return clamp01(score)
}

func min1(v float64) float64 {
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// evaluateHabitat sends the LLM a structured prompt and parses its
// lenient four-line response (spec §4.5).
func (s *Scorer) evaluateHabitat(ctx context.Context, c model.ScoredCluster, targets []model.TargetSpecies) (*model.LLMEvaluation, error) {
	prompt := buildHabitatPrompt(c, targets)
	resp, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, core.NewLanguageModelError("scoring.evaluateHabitat", err)
	}
	return parseHabitatResponse(resp), nil
}

func buildHabitatPrompt(c model.ScoredCluster, targets []model.TargetSpecies) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate this birding location for habitat quality.\n")
	fmt.Fprintf(&b, "Name: %s\n", c.ClusterName)
	fmt.Fprintf(&b, "Coordinates: %.4f, %.4f\n", c.CenterLat, c.CenterLng)
	fmt.Fprintf(&b, "Location count: %d, sighting count: %d\n", c.Statistics.LocationCount, c.Statistics.SightingCount)

	species := c.Statistics.SpeciesCodes
	if len(species) > 5 {
		species = species[:5]
	}
	targetFound := make([]string, 0, len(species))
	for _, code := range species {
		for _, t := range targets {
			if t.SpeciesCode == code {
				targetFound = append(targetFound, t.CommonName)
			}
		}
	}
	fmt.Fprintf(&b, "Target species observed here: %s\n", strings.Join(targetFound, ", "))
	fmt.Fprintf(&b, "Official hotspot: %v\n", c.Accessibility.HasHotspot)
	fmt.Fprintf(&b, "Most recent observation: %s\n", c.Statistics.MostRecentObservation)
	b.WriteString("Respond with exactly four lines:\n")
	b.WriteString("SCORE: <0.0 to 1.0>\nREASONING: <one sentence>\nBEST_TIME: <short phrase>\nTIPS: <one sentence>\n")
	return b.String()
}

func parseHabitatResponse(resp string) *model.LLMEvaluation {
	eval := &model.LLMEvaluation{HabitatScore: 0.5}
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "SCORE:"):
			v := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
				eval.HabitatScore = f
			}
		case strings.HasPrefix(strings.ToUpper(line), "REASONING:"):
			eval.Reasoning = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		case strings.HasPrefix(strings.ToUpper(line), "BEST_TIME:"):
			eval.BestTime = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		case strings.HasPrefix(strings.ToUpper(line), "TIPS:"):
			eval.Tips = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		}
	}
	return eval
}
