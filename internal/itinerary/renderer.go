// Package itinerary implements ItineraryRenderer (spec §4.7): an
// LLM-driven markdown attempt with a validated, deterministic template
// fallback. Grounded on the teacher's ai/client.go single-shot-completion
// pattern (retry-then-validate) and on response_formatter.py's fixed
// equipment checklist, folded in per SPEC_FULL.md §4.
package itinerary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
)

const (
	maxLLMAttempts  = 3
	minMarkdownLen  = 500
	maxSpeciesShown = 10
)

var requiredKeywords = []string{"species", "location", "time"}

// Renderer implements ItineraryRenderer.
type Renderer struct {
	llm    llm.Client
	logger core.Logger
}

// New constructs a Renderer. llmClient may be nil: Render then always
// uses the template path.
func New(llmClient llm.Client, logger core.Logger) *Renderer {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Renderer{llm: llmClient, logger: logger}
}

// Render produces the final markdown itinerary plus its stats block.
func (r *Renderer) Render(ctx context.Context, route model.Route, targets []model.TargetSpecies, constraints model.Constraints) model.Itinerary {
	constraints = constraints.WithDefaults()
	stats := model.ItineraryStats{
		TotalSpecies:               len(targets),
		TotalLocations:             len(route.OrderedClusters),
		EstimatedTripDurationHours: tripDurationHours(route),
	}

	if r.llm != nil {
		body, attempts, ok := r.tryLLM(ctx, route, targets, constraints)
		stats.LLMAttempts = attempts
		if ok {
			stats.Method = model.ItineraryLLMEnhanced
			stats.ContentSections = strings.Count(body, "##")
			markdown := wrapWithMetadata(body, route, targets, stats)
			return model.Itinerary{Markdown: markdown, Stats: stats}
		}
		r.logger.Warn("itinerary llm path exhausted attempts, falling back to template", map[string]interface{}{"attempts": attempts})
	}

	body := renderTemplate(route, targets, constraints, stats)
	stats.Method = model.ItineraryTemplateFallback
	stats.ContentSections = strings.Count(body, "##")
	markdown := wrapWithMetadata(body, route, targets, stats)
	return model.Itinerary{Markdown: markdown, Stats: stats}
}

func tripDurationHours(route model.Route) float64 {
	if len(route.Segments) == 0 {
		return 0
	}
	total := 0.0
	for _, seg := range route.Segments {
		total += seg.EstimatedDriveTimeHours
	}
	return total
}

func (r *Renderer) tryLLM(ctx context.Context, route model.Route, targets []model.TargetSpecies, constraints model.Constraints) (string, int, bool) {
	prompt := buildItineraryPrompt(route, targets, constraints)
	attempts := 0
	for attempts < maxLLMAttempts {
		attempts++
		resp, err := r.llm.Complete(ctx, prompt)
		if err != nil {
			r.logger.Debug("itinerary llm attempt failed", map[string]interface{}{"attempt": attempts, "error": err.Error()})
			continue
		}
		if isValidItineraryMarkdown(resp) {
			return resp, attempts, true
		}
		r.logger.Debug("itinerary llm attempt failed validation", map[string]interface{}{"attempt": attempts, "length": len(resp)})
	}
	return "", attempts, false
}

func isValidItineraryMarkdown(body string) bool {
	if len(body) < minMarkdownLen {
		return false
	}
	if !strings.Contains(body, "##") {
		return false
	}
	lower := strings.ToLower(body)
	for _, kw := range requiredKeywords {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func buildItineraryPrompt(route model.Route, targets []model.TargetSpecies, constraints model.Constraints) string {
	var b strings.Builder
	b.WriteString("Write a birding road-trip itinerary in markdown with section headers (##).\n\n")
	fmt.Fprintf(&b, "Trip overview: %d stops, %.1f km total, %d-day trip, optimization method %s.\n",
		len(route.OrderedClusters), route.TotalDistanceKm, constraints.TripDurationDays, route.OptimizationMethod)

	b.WriteString("Target species: ")
	b.WriteString(speciesSummary(targets))
	b.WriteString("\n\n")

	for i, c := range route.OrderedClusters {
		fmt.Fprintf(&b, "Stop %d: %s (%.4f, %.4f), score %.2f, most recent observation %s\n",
			i+1, c.ClusterName, c.CenterLat, c.CenterLng, c.FinalScore, c.Statistics.MostRecentObservation)
		fmt.Fprintf(&b, "  Species here: %s\n", strings.Join(capSlice(c.Statistics.SpeciesCodes, 8), ", "))
		if c.LLMEvaluation != nil {
			fmt.Fprintf(&b, "  Habitat notes: %s Best time: %s\n", c.LLMEvaluation.Reasoning, c.LLMEvaluation.BestTime)
		}
	}
	b.WriteString("\nInclude a time estimate per stop and mention the target species and each location by name.\n")
	return b.String()
}

func speciesSummary(targets []model.TargetSpecies) string {
	if len(targets) == 0 {
		return "none specified"
	}
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.CommonName)
	}
	if len(names) > maxSpeciesShown {
		extra := len(names) - maxSpeciesShown
		names = names[:maxSpeciesShown]
		return fmt.Sprintf("%s, and %d more", strings.Join(names, ", "), extra)
	}
	return strings.Join(names, ", ")
}

func capSlice(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

// renderTemplate builds the deterministic markdown fallback: header
// statistics, target species list, per-stop sections, and a fixed
// equipment checklist (spec §4.7, supplemented per response_formatter.py).
func renderTemplate(route model.Route, targets []model.TargetSpecies, constraints model.Constraints, stats model.ItineraryStats) string {
	var b strings.Builder

	b.WriteString("## Trip Summary\n\n")
	fmt.Fprintf(&b, "- Stops: %d\n", len(route.OrderedClusters))
	fmt.Fprintf(&b, "- Total distance: %.1f km\n", route.TotalDistanceKm)
	fmt.Fprintf(&b, "- Estimated drive time: %.1f hours\n", stats.EstimatedTripDurationHours)
	fmt.Fprintf(&b, "- Trip duration: %d day(s)\n", constraints.TripDurationDays)
	fmt.Fprintf(&b, "- Route optimization method: %s\n\n", route.OptimizationMethod)

	b.WriteString("## Target Species\n\n")
	if len(targets) == 0 {
		b.WriteString("No target species specified.\n\n")
	} else {
		sorted := append([]model.TargetSpecies(nil), targets...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CommonName < sorted[j].CommonName })
		for _, t := range sorted {
			fmt.Fprintf(&b, "- **%s** (_%s_) — %s\n", t.CommonName, t.ScientificName, t.SeasonalNotes)
		}
		b.WriteString("\n")
	}

	if len(route.OrderedClusters) == 0 {
		b.WriteString("## No Route Available\n\n")
		b.WriteString("No qualifying locations were found for this trip. Try widening the date range, ")
		b.WriteString("relaxing the travel radius, or confirming the target species are present in this region.\n\n")
	}

	for i, c := range route.OrderedClusters {
		fmt.Fprintf(&b, "## Stop %d: %s\n\n", i+1, c.ClusterName)
		fmt.Fprintf(&b, "- Location: %.4f, %.4f\n", c.CenterLat, c.CenterLng)
		if i < len(route.Segments) {
			seg := route.Segments[i]
			fmt.Fprintf(&b, "- Distance from previous stop: %.1f km\n", seg.DistanceKm)
			fmt.Fprintf(&b, "- Estimated drive time: %.1f hours\n", seg.EstimatedDriveTimeHours)
		}
		fmt.Fprintf(&b, "- Location score: %.2f\n", c.FinalScore)
		fmt.Fprintf(&b, "- Official eBird hotspot: %v\n", c.Accessibility.HasHotspot)
		fmt.Fprintf(&b, "- Species recorded: %s\n", strings.Join(capSlice(c.Statistics.SpeciesCodes, 10), ", "))
		if c.LLMEvaluation != nil {
			fmt.Fprintf(&b, "- Best time to visit: %s\n", c.LLMEvaluation.BestTime)
			fmt.Fprintf(&b, "- Tips: %s\n", c.LLMEvaluation.Tips)
		}
		b.WriteString("\n")
	}

	b.WriteString(equipmentChecklist())
	return b.String()
}

func equipmentChecklist() string {
	return "## Equipment Checklist\n\n" +
		"- Binoculars\n" +
		"- Field guide or birding app\n" +
		"- Weather-appropriate footwear\n" +
		"- Water and snacks\n\n"
}

// wrapWithMetadata adds the header/footer spec §4.7 describes for the
// LLM path: pipeline statistics up front, disclaimers and a generation
// timestamp at the end.
func wrapWithMetadata(body string, route model.Route, targets []model.TargetSpecies, stats model.ItineraryStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Birding Road Trip Itinerary\n\n")
	fmt.Fprintf(&b, "_%d species targeted, %d stops, %.1f km, generated via %s._\n\n",
		len(targets), len(route.OrderedClusters), route.TotalDistanceKm, stats.Method)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n---\n\n")
	b.WriteString("Sightings are crowd-sourced observations and are not guaranteed. ")
	b.WriteString("Confirm access and seasonal conditions before visiting. ")
	b.WriteString("Bring binoculars, a field guide, and weather-appropriate gear.\n\n")
	fmt.Fprintf(&b, "_Generated %s._\n", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}
