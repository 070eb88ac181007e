package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
)

// Params holds the engine tuning knobs.
type Params struct {
	TopTags           int `yaml:"top_tags"`
	MaxFeatures       int `yaml:"max_features"`
	MaxSampleAttempts int `yaml:"max_sample_attempts"`
	TagCacheSize      int `yaml:"tag_cache_size"`
}

// DefaultParams returns the engine defaults used when no params file is
// given.
func DefaultParams() Params {
	return Params{
		TopTags:           10,
		MaxFeatures:       10000,
		MaxSampleAttempts: 100,
		TagCacheSize:      16384,
	}
}

// LoadParams loads engine parameters from a YAML file. Fields absent
// from the file keep their defaults.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, err
	}

	params := DefaultParams()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return Params{}, err
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

// Validate rejects parameter values the engine cannot run with.
func (p Params) Validate() error {
	if p.TopTags <= 0 {
		return fmt.Errorf("top_tags must be positive, got %d: %w", p.TopTags, internalerr.ErrInvalidConfig)
	}
	if p.MaxFeatures <= 0 {
		return fmt.Errorf("max_features must be positive, got %d: %w", p.MaxFeatures, internalerr.ErrInvalidConfig)
	}
	if p.MaxSampleAttempts <= 0 {
		return fmt.Errorf("max_sample_attempts must be positive, got %d: %w", p.MaxSampleAttempts, internalerr.ErrInvalidConfig)
	}
	if p.TagCacheSize <= 0 {
		return fmt.Errorf("tag_cache_size must be positive, got %d: %w", p.TagCacheSize, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Source describes one toast site to scrape during ingestion.
type Source struct {
	ID       string `yaml:"id"`
	StartURL string `yaml:"start_url"`
	MaxPages int    `yaml:"max_pages"`
}

// LoadSources loads the scraping source registry from a YAML file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	for i, src := range doc.Sources {
		if strings.TrimSpace(src.ID) == "" {
			return nil, fmt.Errorf("source %d has no id: %w", i, internalerr.ErrInvalidConfig)
		}
		if strings.TrimSpace(src.StartURL) == "" {
			return nil, fmt.Errorf("source %q has no start_url: %w", src.ID, internalerr.ErrInvalidConfig)
		}
		if src.MaxPages <= 0 {
			doc.Sources[i].MaxPages = 1
		}
	}

	return doc.Sources, nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Words []string `yaml:"words"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
