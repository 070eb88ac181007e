// Package markov implements a fixed-order word chain trained on short
// texts, used to synthesize novel toast sentences. The chain keeps no
// verbatim copy of its training texts; deduplication against already
// seen output is the caller's job (see FitSentence).
package markov

import (
	"math/rand"
	"regexp"
	"strings"
)

// Order is the chain state size in words.
const Order = 3

const (
	beginToken = "\x02"
	endToken   = "\x03"
)

// Chain is an order-N word chain. Build once, then sample from any
// number of goroutines that share a locked rand source, or one each.
type Chain struct {
	transitions map[string][]string
	starts      []string
}

type prefix []string

func (p prefix) key() string { return strings.Join(p, " ") }

func (p prefix) shift(word string) {
	copy(p, p[1:])
	p[len(p)-1] = word
}

// Build trains a chain over the corpus, one text per entry. Texts are
// split on whitespace; empty texts are skipped.
func Build(corpus []string) *Chain {
	c := &Chain{transitions: make(map[string][]string)}

	for _, text := range corpus {
		words := strings.Fields(text)
		if len(words) == 0 {
			continue
		}

		p := make(prefix, Order)
		for i := range p {
			p[i] = beginToken
		}
		for _, word := range words {
			c.transitions[p.key()] = append(c.transitions[p.key()], word)
			p.shift(word)
		}
		c.transitions[p.key()] = append(c.transitions[p.key()], endToken)
	}

	beginKey := strings.TrimSpace(strings.Repeat(beginToken+" ", Order))
	c.starts = c.transitions[beginKey]
	return c
}

// Empty reports whether the chain has no usable start states.
func (c *Chain) Empty() bool { return len(c.starts) == 0 }

// Sentence samples one synthesized sentence. Returns ok=false when the
// chain cannot form a sentence (empty or degenerate corpus).
func (c *Chain) Sentence(rng *rand.Rand) (string, bool) {
	if c.Empty() {
		return "", false
	}

	p := make(prefix, Order)
	for i := range p {
		p[i] = beginToken
	}

	var words []string
	for {
		choices := c.transitions[p.key()]
		if len(choices) == 0 {
			// Dead end without an end marker; reject the walk.
			return "", false
		}
		next := choices[rng.Intn(len(choices))]
		if next == endToken {
			break
		}
		words = append(words, next)
		p.shift(next)
	}

	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

var stanzaBreak = regexp.MustCompile(`\s(\p{Lu})`)

// SplitStanzas inserts a newline before each capitalized word that
// follows whitespace, breaking run-on sampled output into pseudo-verses.
func SplitStanzas(sentence string) string {
	return stanzaBreak.ReplaceAllString(sentence, "\n$1")
}
