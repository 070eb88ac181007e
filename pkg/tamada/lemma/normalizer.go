package lemma

import (
	"strings"
	"unicode"
)

// Normalizer turns free text into a sequence of canonical word forms.
// It tokenizes on word boundaries, strips punctuation and dashes from token
// edges, drops stopwords and pure-numeral tokens, and reduces the remainder
// to dictionary form via the attached Dictionary.
//
// A Normalizer is read-only after construction and safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
	dict      *Dictionary
}

// NewNormalizer creates a normalizer with the given stopword list and
// lemma dictionary. A nil dictionary disables lemmatization (tokens pass
// through cleaned and lowercased).
func NewNormalizer(stopwords []string, dict *Dictionary) *Normalizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Normalizer{stopwords: stops, dict: dict}
}

// Default returns a normalizer backed by the embedded stopword list and
// lemma dictionary.
func Default() *Normalizer {
	return NewNormalizer(DefaultStopwords(), DefaultDictionary())
}

// Normalize splits text into canonical lemmas. Deterministic for
// identical input; idempotent on its own joined output.
func (n *Normalizer) Normalize(text string) []string {
	var lemmas []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := n.processToken(current.String()); word != "" {
			lemmas = append(lemmas, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return lemmas
}

// processToken applies edge cleaning, stopword and numeral filtering, and
// lemmatization. Returns "" for tokens that should be discarded.
func (n *Normalizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" {
		return ""
	}
	if isNumericOnly(word) {
		return ""
	}
	if n.isStopword(word) {
		return ""
	}
	if n.dict != nil {
		word = n.dict.Lemma(word)
	}
	// The lemma of an inflected form may itself be a stopword
	// ("всеми" -> "весь"). Filter again so output is stable.
	if n.isStopword(word) {
		return ""
	}
	return word
}

// cleanToken strips leading/trailing hyphens left over from dash runs.
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// isNumericOnly reports whether the token is digits and hyphens only.
// Mixed tokens like "8-е" or "2024-й" are kept.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func (n *Normalizer) isStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}
