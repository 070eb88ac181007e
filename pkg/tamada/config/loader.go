package config

import (
	"fmt"
	"os"

	"github.com/okunev/tamada/pkg/tamada/lemma"
)

// Loader loads all configuration files and constructs components.
// Empty paths fall back to the embedded defaults.
type Loader struct {
	ParamsPath     string
	StoplistPath   string
	ExceptionsPath string
	SourcesPath    string
}

// Components holds all loaded configuration components
type Components struct {
	Params     Params
	Normalizer *lemma.Normalizer
	Sources    []Source
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Params: DefaultParams()}

	if l.ParamsPath != "" {
		params, err := LoadParams(l.ParamsPath)
		if err != nil {
			return nil, fmt.Errorf("load params: %w", err)
		}
		comp.Params = params
	}

	stopwords := lemma.DefaultStopwords()
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		stopwords = stoplist.Words
	}

	dict := lemma.DefaultDictionary()
	if l.ExceptionsPath != "" {
		data, err := os.ReadFile(l.ExceptionsPath)
		if err != nil {
			return nil, fmt.Errorf("load exceptions: %w", err)
		}
		extra, err := lemma.ParseExceptions(data)
		if err != nil {
			return nil, fmt.Errorf("parse exceptions: %w", err)
		}
		// Build a fresh dictionary so the shared default stays clean.
		merged := lemma.NewDictionary(nil)
		merged.Extend(lemma.DefaultDictionary().Exceptions())
		merged.Extend(extra)
		dict = merged
	}

	comp.Normalizer = lemma.NewNormalizer(stopwords, dict)

	if l.SourcesPath != "" {
		sources, err := LoadSources(l.SourcesPath)
		if err != nil {
			return nil, fmt.Errorf("load sources: %w", err)
		}
		comp.Sources = sources
	}

	return comp, nil
}
