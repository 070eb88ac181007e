// Package tfidf implements batch TF-IDF scoring over a document
// collection. Each call to Fit computes term weights for exactly the
// documents given; there is no persistent vocabulary across batches, so
// single-document batches (used when a generated toast is promoted) get
// a degenerate but well-defined weighting.
package tfidf

import (
	"math"
	"sort"
	"strings"
)

// DefaultMaxFeatures is the vocabulary cap used when Fit is called with
// a non-positive maxFeatures.
const DefaultMaxFeatures = 10000

// Model holds the fitted vectors and vocabulary for one batch.
type Model struct {
	vocab   []string       // feature index -> term, sorted lexicographically
	index   map[string]int // term -> feature index
	vectors []Vector       // one per input document, same order
}

// Vector is a sparse weight-per-term vector. Indices refer to positions
// in the model's vocabulary and are stored in increasing order.
type Vector struct {
	Indices []int
	Weights []float64
}

// Fit computes TF-IDF vectors for the given documents. Documents are
// whitespace-separated term strings (callers lemmatize beforehand).
// The IDF is smoothed: idf(t) = ln((1+n)/(1+df(t))) + 1, and each
// document vector is L2-normalized. maxFeatures caps the vocabulary
// size per batch, dropping the rarest terms first; non-positive means
// DefaultMaxFeatures. The cap is a performance bound, not an error
// condition.
func Fit(documents []string, maxFeatures int) *Model {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	counts := make([]map[string]int, len(documents))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range documents {
		tf := make(map[string]int)
		for _, term := range strings.Fields(doc) {
			tf[term]++
			corpusFreq[term]++
		}
		counts[i] = tf
		for term := range tf {
			docFreq[term]++
		}
	}

	vocab := selectVocabulary(corpusFreq, maxFeatures)
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	n := float64(len(documents))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	m := &Model{
		vocab:   vocab,
		index:   index,
		vectors: make([]Vector, len(documents)),
	}

	for i, tf := range counts {
		var vec Vector
		for _, term := range vocab {
			count, ok := tf[term]
			if !ok {
				continue
			}
			vec.Indices = append(vec.Indices, index[term])
			vec.Weights = append(vec.Weights, float64(count)*idf[index[term]])
		}
		normalize(&vec)
		m.vectors[i] = vec
	}

	return m
}

// selectVocabulary keeps at most maxFeatures terms. When over the cap,
// terms are ranked by total corpus frequency (ties lexicographic) and
// the rarest are dropped. The surviving vocabulary is sorted so feature
// order is deterministic.
func selectVocabulary(corpusFreq map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}

	if len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			fi, fj := corpusFreq[terms[i]], corpusFreq[terms[j]]
			if fi != fj {
				return fi > fj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}

	sort.Strings(terms)
	return terms
}

func normalize(vec *Vector) {
	var sum float64
	for _, w := range vec.Weights {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec.Weights {
		vec.Weights[i] /= norm
	}
}

// Len returns the number of fitted documents.
func (m *Model) Len() int { return len(m.vectors) }

// Vocabulary returns the feature terms in feature-index order.
func (m *Model) Vocabulary() []string { return m.vocab }

// Vector returns the fitted vector for document i.
func (m *Model) Vector(i int) Vector { return m.vectors[i] }

// TopTerms returns the up-to-n highest-weighted terms of document i,
// ordered by descending weight; equal weights keep feature order.
func (m *Model) TopTerms(i, n int) []string {
	if i < 0 || i >= len(m.vectors) || n <= 0 {
		return nil
	}
	vec := m.vectors[i]

	order := make([]int, len(vec.Indices))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		if vec.Weights[order[a]] != vec.Weights[order[b]] {
			return vec.Weights[order[a]] > vec.Weights[order[b]]
		}
		return vec.Indices[order[a]] < vec.Indices[order[b]]
	})

	if n > len(order) {
		n = len(order)
	}
	terms := make([]string, 0, n)
	for _, k := range order[:n] {
		terms = append(terms, m.vocab[vec.Indices[k]])
	}
	return terms
}
