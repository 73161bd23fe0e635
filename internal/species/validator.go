// Package species implements SpeciesValidator (spec §4.1): it resolves
// free-text species names against the observation service's taxonomy,
// falling back to partial matching and then an LLM, and caches results
// for the life of the process. Grounded on the teacher's
// core/mock_discovery.go mutex+map caching idiom and on ai/client.go's
// single-shot-completion usage pattern.
package species

import (
	"context"
	"strings"
	"sync"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
)

// Validator implements SpeciesValidator.
type Validator struct {
	obs    ebird.Client
	llm    llm.Client
	logger core.Logger
	cache  Cache

	mu              sync.RWMutex
	taxonomy        []ebird.TaxonomyEntry
	taxonomyErr     error
	taxonomyFetched bool
}

// New constructs a Validator backed by an in-process cache. llmClient
// may be nil: Validate degrades to skipping the LLM fallback step per
// spec §6 ("LLM absence MUST NOT break the pipeline").
func New(obs ebird.Client, llmClient llm.Client, logger core.Logger) *Validator {
	return NewWithCache(obs, llmClient, newMemoryCache(), logger)
}

// NewWithCache constructs a Validator backed by an explicit Cache, e.g.
// RedisCache when config.Config.RedisURL is set, so the name->TargetSpecies
// cache can outlive a single process (spec §9 "expose as explicit
// dependencies... so tests can substitute in-memory stubs").
func NewWithCache(obs ebird.Client, llmClient llm.Client, cache Cache, logger core.Logger) *Validator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if cache == nil {
		cache = newMemoryCache()
	}
	return &Validator{
		obs:    obs,
		llm:    llmClient,
		logger: logger,
		cache:  cache,
	}
}

// Validate resolves names into TargetSpecies, consulting the cache
// first, then the taxonomy, then falling back to the LLM and finally an
// LLM-only stub mode if the taxonomy itself is unreachable (spec §4.1).
func (v *Validator) Validate(ctx context.Context, names []string) ([]model.TargetSpecies, model.SpeciesValidationStats) {
	stats := model.SpeciesValidationStats{TotalInput: len(names)}

	taxonomy, err := v.fetchTaxonomyOnce(ctx)
	taxonomyAvailable := err == nil
	if err != nil {
		v.logger.Warn("taxonomy fetch failed, entering LLM-only fallback", map[string]interface{}{"error": err.Error()})
	}

	normalized := normalizeTaxonomy(taxonomy)

	results := make([]model.TargetSpecies, 0, len(names))
	for _, raw := range names {
		key := strings.ToLower(strings.TrimSpace(raw))

		if cached, ok := v.lookupCache(key); ok {
			stats.CacheHits++
			results = append(results, cached)
			continue
		}

		var (
			ts    model.TargetSpecies
			found bool
		)

		if !taxonomyAvailable {
			ts = fallbackStub(raw)
			stats.FailedValidations++ // fallback stubs never count as a confirmed match
			results = append(results, ts)
			continue
		}

		ts, found = directMatch(raw, normalized)
		if found {
			if ts.ValidationMethod == model.PartialCommonName {
				stats.FuzzyMatches++
			} else {
				stats.DirectMatches++
			}
			ts.SeasonalNotes, ts.BehavioralNotes = seasonalBehavioralNotes(ts.CommonName)
			v.storeCache(key, ts)
			results = append(results, ts)
			continue
		}

		if v.llm != nil {
			ts, found = v.llmFuzzyMatch(ctx, raw, normalized)
			if found {
				stats.FuzzyMatches++
				ts.SeasonalNotes, ts.BehavioralNotes = seasonalBehavioralNotes(ts.CommonName)
				v.storeCache(key, ts)
				results = append(results, ts)
				continue
			}
		}

		stats.FailedValidations++
		results = append(results, model.TargetSpecies{
			OriginalName:     raw,
			SpeciesCode:      "unknown",
			ValidationMethod: model.LLMOnlyFallback,
			Confidence:       0.5,
		})
	}

	if stats.SuccessRate() < 0.5 {
		v.logger.Warn("species validation success rate below 50%", map[string]interface{}{
			"successRate": stats.SuccessRate(),
			"totalInput":  stats.TotalInput,
		})
	}

	return results, stats
}

// fetchTaxonomyOnce fetches the taxonomy at most once per process
// lifetime, satisfying the property that re-running SpeciesValidator
// with the same name list issues zero additional taxonomy lookups after
// the first (spec §8).
func (v *Validator) fetchTaxonomyOnce(ctx context.Context) ([]ebird.TaxonomyEntry, error) {
	v.mu.RLock()
	if v.taxonomyFetched {
		defer v.mu.RUnlock()
		return v.taxonomy, v.taxonomyErr
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.taxonomyFetched {
		return v.taxonomy, v.taxonomyErr
	}
	v.taxonomy, v.taxonomyErr = v.obs.FetchTaxonomy(ctx)
	v.taxonomyFetched = true
	return v.taxonomy, v.taxonomyErr
}

func (v *Validator) lookupCache(key string) (model.TargetSpecies, bool) {
	return v.cache.Get(key)
}

func (v *Validator) storeCache(key string, ts model.TargetSpecies) {
	v.cache.Set(key, ts)
}

type normalizedEntry struct {
	entry   ebird.TaxonomyEntry
	common  string
	sci     string
	code    string
}

func normalizeTaxonomy(entries []ebird.TaxonomyEntry) []normalizedEntry {
	out := make([]normalizedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, normalizedEntry{
			entry:  e,
			common: strings.ToLower(strings.TrimSpace(e.CommonName)),
			sci:    strings.ToLower(strings.TrimSpace(e.ScientificName)),
			code:   strings.ToLower(strings.TrimSpace(e.SpeciesCode)),
		})
	}
	return out
}

// directMatch tries exact commonName, exact scientificName, exact
// speciesCode, then substring commonName match (spec §4.1 step 2).
func directMatch(raw string, taxonomy []normalizedEntry) (model.TargetSpecies, bool) {
	query := strings.ToLower(strings.TrimSpace(raw))

	for _, n := range taxonomy {
		if n.common == query {
			return toTargetSpecies(raw, n.entry, model.DirectCommonName, 1.0), true
		}
	}
	for _, n := range taxonomy {
		if n.sci == query {
			return toTargetSpecies(raw, n.entry, model.DirectScientificName, 1.0), true
		}
	}
	for _, n := range taxonomy {
		if n.code == query {
			return toTargetSpecies(raw, n.entry, model.DirectSpeciesCode, 1.0), true
		}
	}
	if len(query) > 3 {
		for _, n := range taxonomy {
			if strings.Contains(n.common, query) {
				return toTargetSpecies(raw, n.entry, model.PartialCommonName, 0.8), true
			}
		}
	}
	return model.TargetSpecies{}, false
}

// llmFuzzyMatch lists up to 50 common-category taxonomy entries and asks
// the LLM for the single best commonName match or "NO_MATCH" (spec §4.1
// step 3).
func (v *Validator) llmFuzzyMatch(ctx context.Context, raw string, taxonomy []normalizedEntry) (model.TargetSpecies, bool) {
	candidates := make([]ebird.TaxonomyEntry, 0, 50)
	for _, n := range taxonomy {
		if n.entry.Category != "species" && n.entry.Category != "" {
			continue
		}
		candidates = append(candidates, n.entry)
		if len(candidates) >= 50 {
			break
		}
	}

	var b strings.Builder
	b.WriteString("You are identifying a bird species from a user-supplied name.\n")
	b.WriteString("User input: \"" + raw + "\"\n")
	b.WriteString("Candidates (common names):\n")
	for _, c := range candidates {
		b.WriteString("- " + c.CommonName + "\n")
	}
	b.WriteString("Reply with exactly one candidate's common name verbatim, or the literal string NO_MATCH.\n")

	resp, err := v.llm.Complete(ctx, b.String())
	if err != nil {
		v.logger.Debug("llm fuzzy match failed", map[string]interface{}{"error": err.Error()})
		return model.TargetSpecies{}, false
	}

	answer := strings.ToLower(strings.TrimSpace(resp))
	if answer == "no_match" {
		return model.TargetSpecies{}, false
	}
	for _, n := range taxonomy {
		if n.common == answer {
			return toTargetSpecies(raw, n.entry, model.LLMFuzzyMatch, 0.7), true
		}
	}
	return model.TargetSpecies{}, false
}

func toTargetSpecies(raw string, e ebird.TaxonomyEntry, method model.ValidationMethod, confidence float64) model.TargetSpecies {
	return model.TargetSpecies{
		OriginalName:         raw,
		CommonName:           e.CommonName,
		ScientificName:       e.ScientificName,
		SpeciesCode:          e.SpeciesCode,
		TaxonomicOrder:       e.TaxonomicOrder,
		FamilyCommonName:     e.FamilyCommonName,
		FamilyScientificName: e.FamilyScientificName,
		ValidationMethod:     method,
		Confidence:           confidence,
	}
}

func fallbackStub(raw string) model.TargetSpecies {
	return model.TargetSpecies{
		OriginalName:     raw,
		SpeciesCode:      "unknown",
		ValidationMethod: model.LLMOnlyFallback,
		Confidence:       0.5,
	}
}

// keywordNotes maps a commonName substring to seasonal and behavioral
// notes (spec §4.1: "a small deterministic keyword table").
var keywordNotes = []struct {
	keyword    string
	seasonal   string
	behavioral string
}{
	{"warbler", "Peak migration: spring and fall", "Forages actively in foliage; listen for high-pitched songs"},
	{"hawk", "Most visible during fall migration", "Often seen soaring on thermals"},
	{"owl", "Most active at dawn and dusk", "Listen for calls at night; scan dense cover by day"},
	{"duck", "Peak numbers in winter", "Found on open water and wetlands"},
	{"sparrow", "Year-round with migratory peaks in spring/fall", "Forages on or near the ground in brushy habitat"},
	{"heron", "Most common spring through fall", "Wades slowly in shallow water hunting fish"},
	{"tern", "Coastal breeder, present late spring to early fall", "Often seen plunge-diving for fish"},
	{"cardinal", "Present year-round", "Frequents feeders and dense shrubs"},
}

func seasonalBehavioralNotes(commonName string) (seasonal, behavioral string) {
	lower := strings.ToLower(commonName)
	for _, k := range keywordNotes {
		if strings.Contains(lower, k.keyword) {
			return k.seasonal, k.behavioral
		}
	}
	return "No specific seasonal pattern on record", "Behavior varies; consult a field guide"
}
