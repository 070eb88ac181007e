package lemma

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/stopwords.txt
var stopwordsRaw string

//go:embed data/lemmas.yaml
var lemmasRaw []byte

var defaults struct {
	once      sync.Once
	stopwords []string
	dict      *Dictionary
}

// DefaultStopwords returns the embedded Russian stopword list.
func DefaultStopwords() []string {
	loadDefaults()
	return defaults.stopwords
}

// DefaultDictionary returns a dictionary seeded with the embedded
// exception table. The returned value is shared; mutate a copy built
// with NewDictionary if exceptions need to differ per corpus.
func DefaultDictionary() *Dictionary {
	loadDefaults()
	return defaults.dict
}

func loadDefaults() {
	defaults.once.Do(func() {
		for _, line := range strings.Split(stopwordsRaw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			defaults.stopwords = append(defaults.stopwords, line)
		}

		exceptions, err := ParseExceptions(lemmasRaw)
		if err != nil {
			// Embedded data is part of the build; a parse failure here
			// is a packaging bug, not a runtime condition.
			panic("lemma: embedded lemmas.yaml: " + err.Error())
		}
		defaults.dict = NewDictionary(exceptions)
	})
}

// ParseExceptions decodes a YAML exception table into form -> lemma pairs.
//
// Expected format:
//
//	exceptions:
//	  - lemma: день
//	    forms: [дня, дню, днём]
func ParseExceptions(data []byte) (map[string]string, error) {
	var doc struct {
		Exceptions []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"exceptions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	pairs := make(map[string]string)
	for _, e := range doc.Exceptions {
		lemma := strings.ToLower(strings.TrimSpace(e.Lemma))
		if lemma == "" {
			continue
		}
		for _, form := range e.Forms {
			form = strings.ToLower(strings.TrimSpace(form))
			if form != "" {
				pairs[form] = lemma
			}
		}
	}
	return pairs, nil
}
