// Package config loads the two secrets and pipeline tunables spec §6
// names, grounded on the teacher's core/config.go env-tag style but
// trimmed to this spec's scope: CLI argument parsing and config-file
// loading are explicitly out-of-scope external collaborators. An optional
// YAML overrides document (not a CLI) can still adjust tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the pipeline's injected
// capabilities and tunables.
type Config struct {
	// EBirdAPIToken is sent as the X-eBirdApiToken header. Missing this
	// is fatal (spec §6).
	EBirdAPIToken string `yaml:"ebird_api_token"`
	// EBirdBaseURL defaults to the production eBird v2 API.
	EBirdBaseURL string `yaml:"ebird_base_url"`

	// LLMAPIToken is optional; its absence degrades Stages 1, 5, 7 to
	// fallback behavior (spec §6).
	LLMAPIToken string `yaml:"llm_api_token"`
	LLMBaseURL  string `yaml:"llm_base_url"`

	// SightingsWorkerPoolSize bounds Stage 2's concurrent fan-out (spec
	// §4.2 default 5).
	SightingsWorkerPoolSize int `yaml:"sightings_worker_pool_size"`
	// RateLimitInterval is the minimum spacing between observation-service
	// requests across all workers (spec §4.2/§5 default 200ms).
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`
	// HTTPCallTimeout is the per-call deadline (spec §5 default 30s).
	HTTPCallTimeout time.Duration `yaml:"http_call_timeout"`
	// ClusterRadiusKm holds a greedy clustering radius (default 15km). It
	// is not passed to the pipeline: Stage 4 always uses
	// clustering.ClusterRadiusKm.
	ClusterRadiusKm float64 `yaml:"cluster_radius_km"`
	// AverageDrivingSpeedKmh is used for travel-time estimates throughout
	// (spec §4.3/§4.6, a fixed constant such as 60km/h).
	AverageDrivingSpeedKmh float64 `yaml:"average_driving_speed_kmh"`
	// RedisURL, if set, backs the species-validation cache with Redis
	// instead of an in-process map (domain-stack wiring, optional).
	RedisURL string `yaml:"redis_url"`
}

// Default returns spec-documented defaults with empty tokens.
func Default() *Config {
	return &Config{
		EBirdBaseURL:            "https://api.ebird.org/v2",
		SightingsWorkerPoolSize: 5,
		RateLimitInterval:       200 * time.Millisecond,
		HTTPCallTimeout:         30 * time.Second,
		ClusterRadiusKm:         15,
		AverageDrivingSpeedKmh:  60,
	}
}

// FromEnv loads Config from environment variables layered on top of
// Default(), then validates the eBird token is present.
func FromEnv() (*Config, error) {
	cfg := Default()

	if v := os.Getenv("EBIRD_API_TOKEN"); v != "" {
		cfg.EBirdAPIToken = v
	}
	if v := os.Getenv("EBIRD_BASE_URL"); v != "" {
		cfg.EBirdBaseURL = v
	}
	if v := os.Getenv("LLM_API_TOKEN"); v != "" {
		cfg.LLMAPIToken = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("SIGHTINGS_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SightingsWorkerPoolSize = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimitInterval = d
		}
	}
	if v := os.Getenv("HTTP_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPCallTimeout = d
		}
	}

	if cfg.EBirdAPIToken == "" {
		return nil, fmt.Errorf("EBIRD_API_TOKEN is required")
	}
	return cfg, nil
}

// ApplyYAMLOverrides decodes a YAML document of tunable overrides onto
// cfg. Secrets are deliberately not accepted from this path — tokens only
// come from the environment.
func ApplyYAMLOverrides(cfg *Config, doc []byte) error {
	var overrides struct {
		SightingsWorkerPoolSize int           `yaml:"sightings_worker_pool_size"`
		RateLimitInterval       time.Duration `yaml:"rate_limit_interval"`
		HTTPCallTimeout         time.Duration `yaml:"http_call_timeout"`
		ClusterRadiusKm         float64       `yaml:"cluster_radius_km"`
		AverageDrivingSpeedKmh  float64       `yaml:"average_driving_speed_kmh"`
	}
	if err := yaml.Unmarshal(doc, &overrides); err != nil {
		return fmt.Errorf("decoding config overrides: %w", err)
	}
	if overrides.SightingsWorkerPoolSize > 0 {
		cfg.SightingsWorkerPoolSize = overrides.SightingsWorkerPoolSize
	}
	if overrides.RateLimitInterval > 0 {
		cfg.RateLimitInterval = overrides.RateLimitInterval
	}
	if overrides.HTTPCallTimeout > 0 {
		cfg.HTTPCallTimeout = overrides.HTTPCallTimeout
	}
	if overrides.ClusterRadiusKm > 0 {
		cfg.ClusterRadiusKm = overrides.ClusterRadiusKm
	}
	if overrides.AverageDrivingSpeedKmh > 0 {
		cfg.AverageDrivingSpeedKmh = overrides.AverageDrivingSpeedKmh
	}
	return nil
}

// HasLLM reports whether an LLM token is configured. Stages 1, 5, 7 check
// this to decide whether to construct a real LLM client or skip straight
// to fallback behavior.
func (c *Config) HasLLM() bool {
	return c.LLMAPIToken != ""
}
