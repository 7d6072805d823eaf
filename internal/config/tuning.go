package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default analysis values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the analysis pipeline.
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Harmonic removal params
	HarmonicOrders      []int    `json:"harmonic_orders,omitempty"`
	MinRPM              *float64 `json:"min_rpm,omitempty"`
	MaxHarmonicDistance *float64 `json:"max_harmonic_distance,omitempty"`

	// Clustering params
	Algorithm       *string            `json:"algorithm,omitempty"` // "dbscan" or "hdbscan"
	Eps             *float64           `json:"eps,omitempty"`
	MinSamples      *int               `json:"min_samples,omitempty"`
	MinClusterSize  *int               `json:"min_cluster_size,omitempty"`
	Multipliers     map[string]float64 `json:"multipliers,omitempty"`
	TimeDivider     *float64           `json:"time_divider,omitempty"`
	MinModalSize    *float64           `json:"min_modal_size,omitempty"`
	MaxModalDamping *float64           `json:"max_modal_damping,omitempty"`
	FrequencyMin    *float64           `json:"frequency_min,omitempty"`
	FrequencyMax    *float64           `json:"frequency_max,omitempty"`

	// Aggregation params
	AggregatePeriod *string  `json:"aggregate_period,omitempty"` // duration string like "24h"
	MinCoverage     *float64 `json:"min_coverage,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// Fields omitted from the JSON file retain their default values, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. When no defaults file is found it returns an empty config,
// whose Get* methods supply the built-in production defaults.
func LoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	return EmptyTuningConfig()
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Algorithm != nil {
		if *c.Algorithm != "dbscan" && *c.Algorithm != "hdbscan" {
			return fmt.Errorf("algorithm must be dbscan or hdbscan, got %q", *c.Algorithm)
		}
	}
	if c.Eps != nil && *c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %f", *c.Eps)
	}
	if c.MinSamples != nil && *c.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1, got %d", *c.MinSamples)
	}
	if c.MinCoverage != nil {
		if *c.MinCoverage <= 0 || *c.MinCoverage > 1 {
			return fmt.Errorf("min_coverage must be in (0, 1], got %f", *c.MinCoverage)
		}
	}
	if c.AggregatePeriod != nil && *c.AggregatePeriod != "" {
		if _, err := time.ParseDuration(*c.AggregatePeriod); err != nil {
			return fmt.Errorf("invalid aggregate_period '%s': %w", *c.AggregatePeriod, err)
		}
	}
	if c.FrequencyMin != nil && c.FrequencyMax != nil && *c.FrequencyMin >= *c.FrequencyMax {
		return fmt.Errorf("frequency_min %f must be below frequency_max %f", *c.FrequencyMin, *c.FrequencyMax)
	}
	return nil
}

// GetHarmonicOrders returns the configured harmonic orders or the default.
func (c *TuningConfig) GetHarmonicOrders() []int {
	if len(c.HarmonicOrders) == 0 {
		return []int{1, 3, 6, 9, 12}
	}
	return c.HarmonicOrders
}

// GetMinRPM returns the min_rpm value or the default.
func (c *TuningConfig) GetMinRPM() float64 {
	if c.MinRPM == nil {
		return 6.0
	}
	return *c.MinRPM
}

// GetMaxHarmonicDistance returns the max_harmonic_distance value or the default.
func (c *TuningConfig) GetMaxHarmonicDistance() float64 {
	if c.MaxHarmonicDistance == nil {
		return 0.1
	}
	return *c.MaxHarmonicDistance
}

// GetAlgorithm returns the algorithm value or the default.
func (c *TuningConfig) GetAlgorithm() string {
	if c.Algorithm == nil {
		return "dbscan"
	}
	return *c.Algorithm
}

// GetEps returns the eps value or the default.
func (c *TuningConfig) GetEps() float64 {
	if c.Eps == nil {
		return 5.0
	}
	return *c.Eps
}

// GetMinSamples returns the min_samples value or the default.
func (c *TuningConfig) GetMinSamples() int {
	if c.MinSamples == nil {
		return 100
	}
	return *c.MinSamples
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *TuningConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 500
	}
	return *c.MinClusterSize
}

// GetMultipliers returns the feature multipliers or the default weighting.
func (c *TuningConfig) GetMultipliers() map[string]float64 {
	if len(c.Multipliers) == 0 {
		return map[string]float64{
			"frequency": 40,
			"damping":   1,
			"size":      0.5,
		}
	}
	return c.Multipliers
}

// GetTimeDivider returns the time_divider value or the default.
func (c *TuningConfig) GetTimeDivider() float64 {
	if c.TimeDivider == nil {
		return 20000
	}
	return *c.TimeDivider
}

// GetMinModalSize returns the min_modal_size value or the default.
func (c *TuningConfig) GetMinModalSize() float64 {
	if c.MinModalSize == nil {
		return 5
	}
	return *c.MinModalSize
}

// GetMaxModalDamping returns the max_modal_damping value or the default.
func (c *TuningConfig) GetMaxModalDamping() float64 {
	if c.MaxModalDamping == nil {
		return 5
	}
	return *c.MaxModalDamping
}

// GetFrequencyRange returns the configured band, or nil when unbounded.
func (c *TuningConfig) GetFrequencyRange() *[2]float64 {
	if c.FrequencyMin == nil || c.FrequencyMax == nil {
		return nil
	}
	return &[2]float64{*c.FrequencyMin, *c.FrequencyMax}
}

// GetAggregatePeriod parses and returns the aggregation period.
func (c *TuningConfig) GetAggregatePeriod() time.Duration {
	if c.AggregatePeriod == nil || *c.AggregatePeriod == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(*c.AggregatePeriod)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetMinCoverage returns the min_coverage value or the default.
func (c *TuningConfig) GetMinCoverage() float64 {
	if c.MinCoverage == nil {
		return 0.9
	}
	return *c.MinCoverage
}
