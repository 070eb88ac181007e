package markov

import (
	"math/rand"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
)

// DefaultMaxAttempts bounds the resample loop. The original design
// retried forever; a degenerate corpus (one short text, heavy
// repetition) then spins, so sampling fails after this many rejects.
const DefaultMaxAttempts = 100

// FitSentence samples the chain until it produces a sentence that is
// non-empty and absent from seen, giving up after maxAttempts with
// ErrDegenerateModel. A maxAttempts of zero or less uses
// DefaultMaxAttempts. The returned sentence is stanza-split.
func FitSentence(c *Chain, seen map[string]struct{}, maxAttempts int, rng *rand.Rand) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		sentence, ok := c.Sentence(rng)
		if !ok {
			continue
		}
		split := SplitStanzas(sentence)
		// Stored exposures hold the stanza-split form; check both so a
		// resampled duplicate never slips through.
		if _, dup := seen[sentence]; dup {
			continue
		}
		if _, dup := seen[split]; dup {
			continue
		}
		return split, nil
	}
	return "", internalerr.ErrDegenerateModel
}
