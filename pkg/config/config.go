// Package config loads archlens configuration from TOML. All fields have
// working defaults; a config file only overrides what it names.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/imagecmp"
	"github.com/archlens/archlens/pkg/score"
)

// Config is the complete archlens configuration.
type Config struct {
	Comparison ComparisonConfig         `toml:"comparison"`
	Blend      BlendConfig              `toml:"blend"`
	Regression history.RegressionConfig `toml:"regression"`
	Store      StoreConfig              `toml:"store"`
	Server     ServerConfig             `toml:"server"`
}

// ComparisonConfig tunes image comparison.
type ComparisonConfig struct {
	StructuralWeight      float64 `toml:"structural_weight"`
	PerceptualWeight      float64 `toml:"perceptual_weight"`
	SimilarityThreshold   float64 `toml:"similarity_threshold"`
	HashDistanceThreshold int     `toml:"hash_distance_threshold"`
}

// BlendConfig tunes how readability and similarity combine.
type BlendConfig struct {
	Readability float64 `toml:"readability"`
	Similarity  float64 `toml:"similarity"`
	Threshold   float64 `toml:"threshold"`
}

// StoreConfig selects the snapshot store backend. Backend is one of
// "memory", "file", "redis", or "mongo".
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`

	Redis history.RedisConfig `toml:"redis"`
	Mongo history.MongoConfig `toml:"mongo"`
}

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cmpOpts := imagecmp.DefaultOptions()
	return &Config{
		Comparison: ComparisonConfig{
			StructuralWeight:      cmpOpts.StructuralWeight,
			PerceptualWeight:      cmpOpts.PerceptualWeight,
			SimilarityThreshold:   cmpOpts.SimilarityThreshold,
			HashDistanceThreshold: cmpOpts.HashDistanceThreshold,
		},
		Blend: BlendConfig{
			Readability: score.DefaultBlend.Readability,
			Similarity:  score.DefaultBlend.Similarity,
			Threshold:   0.7,
		},
		Regression: history.DefaultRegressionConfig(),
		Store: StoreConfig{
			Backend: "file",
			Path:    ".archlens/history",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the TOML schema cannot express.
func (c *Config) Validate() error {
	if c.Comparison.StructuralWeight < 0 || c.Comparison.PerceptualWeight < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "comparison weights must be non-negative")
	}
	if c.Comparison.StructuralWeight+c.Comparison.PerceptualWeight == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "comparison weights must not both be zero")
	}
	if c.Comparison.HashDistanceThreshold < 0 || c.Comparison.HashDistanceThreshold > 64 {
		return errors.New(errors.ErrCodeInvalidConfig, "hash_distance_threshold must be in [0,64]")
	}
	if c.Blend.Readability < 0 || c.Blend.Similarity < 0 || c.Blend.Readability+c.Blend.Similarity == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "blend weights invalid")
	}
	if c.Blend.Threshold < 0 || c.Blend.Threshold > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "blend threshold must be in [0,1]")
	}
	if c.Regression.MinorPercent >= c.Regression.ModeratePercent || c.Regression.ModeratePercent >= c.Regression.SeverePercent {
		return errors.New(errors.ErrCodeInvalidConfig, "regression thresholds must be strictly increasing")
	}
	switch c.Store.Backend {
	case "memory", "file", "redis", "mongo":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// CompareOptions builds imagecmp options from the config.
func (c *Config) CompareOptions() imagecmp.Options {
	return imagecmp.Options{
		StructuralWeight:      c.Comparison.StructuralWeight,
		PerceptualWeight:      c.Comparison.PerceptualWeight,
		SimilarityThreshold:   c.Comparison.SimilarityThreshold,
		HashDistanceThreshold: c.Comparison.HashDistanceThreshold,
	}
}

// BlendWeights builds score blend weights from the config.
func (c *Config) BlendWeights() score.BlendWeights {
	return score.BlendWeights{
		Readability: c.Blend.Readability,
		Similarity:  c.Blend.Similarity,
	}
}
