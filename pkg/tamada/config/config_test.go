package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadParams(t *testing.T) {
	path := writeFile(t, "params.yaml", `
top_tags: 5
max_sample_attempts: 25
`)

	params, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if params.TopTags != 5 {
		t.Errorf("TopTags = %d, want 5", params.TopTags)
	}
	if params.MaxSampleAttempts != 25 {
		t.Errorf("MaxSampleAttempts = %d, want 25", params.MaxSampleAttempts)
	}
	// Unset fields keep defaults.
	if params.MaxFeatures != 10000 {
		t.Errorf("MaxFeatures = %d, want default 10000", params.MaxFeatures)
	}
	if params.TagCacheSize != 16384 {
		t.Errorf("TagCacheSize = %d, want default 16384", params.TagCacheSize)
	}
}

func TestLoadParamsInvalid(t *testing.T) {
	path := writeFile(t, "params.yaml", `top_tags: -1`)

	if _, err := LoadParams(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("LoadParams = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadSources(t *testing.T) {
	path := writeFile(t, "sources.yaml", `
sources:
  - id: alcofan
    start_url: https://alcofan.com/toasts
    max_pages: 12
  - id: pozdravuha
    start_url: https://pozdravuha.ru/toasts
`)

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].ID != "alcofan" || sources[0].MaxPages != 12 {
		t.Errorf("source[0] = %+v", sources[0])
	}
	// Missing max_pages defaults to a single page.
	if sources[1].MaxPages != 1 {
		t.Errorf("source[1].MaxPages = %d, want 1", sources[1].MaxPages)
	}
}

func TestLoadSourcesMissingID(t *testing.T) {
	path := writeFile(t, "sources.yaml", `
sources:
  - start_url: https://example.com
`)

	if _, err := LoadSources(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("LoadSources = %v, want ErrInvalidConfig", err)
	}
}

func TestLoaderDefaults(t *testing.T) {
	loader := &Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.Params != DefaultParams() {
		t.Errorf("Params = %+v, want defaults", comp.Params)
	}
	if comp.Normalizer == nil {
		t.Fatal("Normalizer not built")
	}

	// Embedded stopwords and exceptions are active.
	tokens := comp.Normalizer.Normalize("С днём рождения!")
	want := []string{"день", "рождение"}
	if len(tokens) != len(want) {
		t.Fatalf("Normalize = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestLoaderCustomExceptions(t *testing.T) {
	excPath := writeFile(t, "exceptions.yaml", `
exceptions:
  - lemma: тамада
    forms: [тамаде, тамаду, тамадой]
`)

	loader := &Loader{ExceptionsPath: excPath}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tokens := comp.Normalizer.Normalize("Спасибо тамаде!")
	if len(tokens) != 2 || tokens[1] != "тамада" {
		t.Errorf("Normalize = %v, want [спасибо тамада]", tokens)
	}

	// The embedded table still applies alongside the extension.
	tokens = comp.Normalizer.Normalize("гостям")
	if len(tokens) != 1 || tokens[0] != "гость" {
		t.Errorf("Normalize = %v, want [гость]", tokens)
	}
}
