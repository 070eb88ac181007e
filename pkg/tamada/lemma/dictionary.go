package lemma

import (
	"sort"
	"strings"
)

// Dictionary reduces inflected Russian word forms to a canonical form.
//
// Two layers, checked in order:
//   - exceptions: explicit form -> lemma pairs for irregular and
//     high-frequency words ("днём" -> "день", "люди" -> "человек");
//   - suffix rules: an ordered table of ending rewrites applied once to
//     the first (longest) matching suffix, with a minimum stem length so
//     short words pass through untouched.
//
// The rule table includes identity rewrites for canonical endings
// ("ние" -> "ние") so that a lemma maps to itself: Lemma(Lemma(w)) == Lemma(w).
type Dictionary struct {
	exceptions map[string]string
	rules      []suffixRule
}

type suffixRule struct {
	suffix  string
	lemma   string // replacement ending
	minStem int    // minimum rune count left of the suffix
}

// NewDictionary builds a dictionary from explicit exception pairs.
// The standard suffix rule table is always attached.
func NewDictionary(exceptions map[string]string) *Dictionary {
	exc := make(map[string]string, len(exceptions))
	for form, lemma := range exceptions {
		form, lemma = strings.ToLower(form), strings.ToLower(lemma)
		exc[form] = lemma
		// A lemma is its own canonical form; without this a bare
		// nominative would fall through to the suffix rules.
		if _, ok := exc[lemma]; !ok {
			exc[lemma] = lemma
		}
	}
	rules := make([]suffixRule, len(standardRules))
	copy(rules, standardRules)
	// Longest suffix wins; table order breaks ties deterministically.
	sort.SliceStable(rules, func(i, j int) bool {
		return len([]rune(rules[i].suffix)) > len([]rune(rules[j].suffix))
	})
	return &Dictionary{exceptions: exc, rules: rules}
}

// Exceptions returns a copy of the explicit form -> lemma pairs.
func (d *Dictionary) Exceptions() map[string]string {
	out := make(map[string]string, len(d.exceptions))
	for form, lemma := range d.exceptions {
		out[form] = lemma
	}
	return out
}

// Extend adds exception pairs, overriding existing ones.
func (d *Dictionary) Extend(exceptions map[string]string) {
	for form, lemma := range exceptions {
		form, lemma = strings.ToLower(form), strings.ToLower(lemma)
		d.exceptions[form] = lemma
		if _, ok := d.exceptions[lemma]; !ok {
			d.exceptions[lemma] = lemma
		}
	}
}

// maxLemmaPasses bounds the rewrite loop in Lemma. Every non-identity
// rule either shortens the word or produces an ending no rule matches,
// so convergence is fast; the cap only guards against a bad Extend.
const maxLemmaPasses = 6

// Lemma returns the canonical form of word. The input is expected to be
// a lowercased cleaned token. Rewrites are applied until the form is
// stable, so Lemma(Lemma(w)) == Lemma(w) for any w.
func (d *Dictionary) Lemma(word string) string {
	for i := 0; i < maxLemmaPasses; i++ {
		next := d.lemmaOnce(word)
		if next == word {
			break
		}
		word = next
	}
	return word
}

// lemmaOnce applies one rewrite step: exception lookup first, then the
// longest matching suffix rule. Stripping one ending can expose another
// ("головою" -> "голов" -> "гол"), which is why Lemma iterates.
func (d *Dictionary) lemmaOnce(word string) string {
	if lemma, ok := d.exceptions[word]; ok {
		return lemma
	}
	// Hyphenated compounds ("тост-притча") keep their surface form;
	// suffix rules are tuned for single words.
	if strings.ContainsRune(word, '-') {
		return word
	}

	runes := []rune(word)
	for _, rule := range d.rules {
		suffix := []rune(rule.suffix)
		if len(runes) < len(suffix)+rule.minStem {
			continue
		}
		if string(runes[len(runes)-len(suffix):]) != rule.suffix {
			continue
		}
		return string(runes[:len(runes)-len(suffix)]) + rule.lemma
	}
	return word
}

// standardRules rewrites common Russian inflectional endings. Identity
// rules pin canonical endings so already-lemmatized words are stable.
// Replacements need not be terminal: Lemma keeps rewriting until the
// form stops changing.
var standardRules = []suffixRule{
	// -ние/-тие nouns (рождение, поздравление, открытие).
	{"ниями", "ние", 3},
	{"ниях", "ние", 3},
	{"ниям", "ние", 3},
	{"нием", "ние", 3},
	{"ние", "ние", 3},
	{"нию", "ние", 3},
	{"ния", "ние", 3},
	{"ний", "ние", 3},
	{"тием", "тие", 3},
	{"тие", "тие", 3},
	{"тия", "тие", 3},
	{"тию", "тие", 3},

	// Adjectives and participles -> masculine nominative.
	{"ыми", "ый", 3},
	{"ими", "ий", 3},
	{"ого", "ый", 3},
	{"его", "ий", 3},
	{"ому", "ый", 3},
	{"ему", "ий", 3},
	{"ый", "ый", 3},
	{"ий", "ий", 3},
	{"ой", "ый", 4},
	{"ая", "ый", 3},
	{"яя", "ий", 3},
	{"ое", "ый", 3},
	{"ее", "ий", 3},
	{"ые", "ый", 3},
	{"ие", "ий", 3},
	{"ую", "ый", 3},
	{"юю", "ий", 3},
	{"ых", "ый", 3},
	{"их", "ий", 3},
	{"ым", "ый", 3},
	{"им", "ий", 3},

	// Reflexive and infinitive verb endings.
	{"ишься", "иться", 3},
	{"аться", "аться", 2},
	{"иться", "иться", 2},
	{"ться", "ться", 3},
	{"ется", "еться", 3},

	// Verb past tense -> infinitive approximation.
	{"ала", "ать", 3},
	{"али", "ать", 3},
	{"ало", "ать", 3},
	{"ило", "ить", 3},
	{"или", "ить", 3},
	{"ила", "ить", 3},

	// Noun plural/case endings stripped to the stem.
	{"ами", "", 3},
	{"ями", "ь", 3},
	{"ах", "", 3},
	{"ях", "ь", 3},
	{"ов", "", 3},
	{"ев", "", 3},
	{"ей", "ь", 3},
	{"ам", "", 3},
	{"ям", "ь", 3},
	{"ом", "", 3},
	{"ем", "ь", 3},
	{"ою", "", 4},
	{"у", "", 4},
	{"ю", "ь", 4},
	{"ы", "", 4},
	{"и", "ь", 4},
	{"а", "", 4},
	{"я", "ь", 4},
	{"е", "", 4},
	{"о", "о", 3},
}
