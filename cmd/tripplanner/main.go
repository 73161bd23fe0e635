// Command tripplanner is a thin demonstration binary: it wires real
// ObservationClient/LLMClient instances from environment configuration
// and runs the pipeline once, printing the resulting itinerary
// markdown. It is not a transport adapter — no HTTP server, no request
// framing — per SPEC_FULL.md's "thin main() wiring" scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aviantrail/tripplanner/internal/config"
	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/ebird"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/llm"
	"github.com/aviantrail/tripplanner/internal/model"
	"github.com/aviantrail/tripplanner/internal/pipeline"
	"github.com/aviantrail/tripplanner/internal/species"
	"github.com/aviantrail/tripplanner/internal/telemetry"
)

func main() {
	speciesFlag := flag.String("species", "", "comma-separated target species names")
	region := flag.String("region", "", "eBird region code, e.g. US-MA")
	lat := flag.Float64("lat", 0, "start latitude")
	lng := flag.Float64("lng", 0, "start longitude")
	hasStart := flag.Bool("has-start", false, "set if --lat/--lng specify a real start location")
	daysBack := flag.Int("days-back", 7, "how many days back to search")
	tripDays := flag.Int("trip-days", 1, "trip duration in days")
	flag.Parse()

	if err := run(*speciesFlag, *region, *lat, *lng, *hasStart, *daysBack, *tripDays); err != nil {
		log.Fatalf("tripplanner: %v", err)
	}
}

func run(speciesCSV, region string, lat, lng float64, hasStart bool, daysBack, tripDays int) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewSimpleLogger()

	provider, err := telemetry.NewStdoutProvider("tripplanner")
	if err != nil {
		logger.Warn("telemetry unavailable, continuing without tracing", map[string]interface{}{"error": err.Error()})
		provider = telemetry.NoopProvider()
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	obsClient := ebird.New(cfg.EBirdBaseURL, cfg.EBirdAPIToken, cfg.RateLimitInterval, cfg.HTTPCallTimeout, logger)

	var llmClient llm.Client
	if cfg.HasLLM() {
		llmClient = llm.NewHTTPClient(cfg.LLMAPIToken, cfg.LLMBaseURL, cfg.HTTPCallTimeout, logger)
	} else {
		logger.Warn("no LLM_API_TOKEN configured, stages 1/5/7 will use fallback behavior", nil)
	}

	var cache species.Cache
	if cfg.RedisURL != "" {
		cache = species.NewRedisCache(cfg.RedisURL, logger)
	}

	runner := pipeline.New(pipeline.Options{
		ObservationClient:       obsClient,
		LLMClient:               llmClient,
		SpeciesCache:            cache,
		SightingsWorkerPoolSize: cfg.SightingsWorkerPoolSize,
		AverageDrivingSpeedKmh:  cfg.AverageDrivingSpeedKmh,
		Telemetry:               provider,
		Logger:                  logger,
	})

	constraints := model.Constraints{
		RegionCode:         region,
		DaysBack:           daysBack,
		TripDurationDays:   tripDays,
		MinObservationQuality: model.QualityAny,
	}
	if hasStart {
		constraints.StartLocation = &geo.Coordinate{Lat: lat, Lng: lng}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result := runner.Run(ctx, splitSpecies(speciesCSV), constraints)
	if !result.Success {
		fmt.Fprintln(os.Stderr, result.ErrorMessage)
	}
	fmt.Println(result.ItineraryMarkdown)
	return nil
}

func splitSpecies(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
