// Package tamada is the content retrieval and generation engine behind
// the toast bot: it tags scraped toasts by term importance, serves them
// to chats with exposure tracking, synthesizes new toasts from a
// per-request Markov model, and promotes liked generated text into the
// permanent corpus.
package tamada

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
	"github.com/okunev/tamada/pkg/tamada/lemma"
	"github.com/okunev/tamada/pkg/tamada/markov"
	"github.com/okunev/tamada/pkg/tamada/stage"
	"github.com/okunev/tamada/pkg/tamada/store"
	"github.com/okunev/tamada/pkg/tamada/tfidf"
)

// Engine is the main retrieval/generation facade
type Engine struct {
	store       store.Store
	norm        *lemma.Normalizer
	cache       *store.TagCache
	topTags     int
	maxFeatures int
	maxAttempts int
	rng         *rand.Rand
}

// Options configures an Engine instance
type Options struct {
	Store      store.Store
	Normalizer *lemma.Normalizer

	// TopTags is how many highest-weighted terms become tags per toast.
	TopTags int
	// MaxFeatures caps the TF-IDF vocabulary per ingested batch; zero
	// means tfidf.DefaultMaxFeatures.
	MaxFeatures int
	// MaxSampleAttempts bounds the novel-sentence resample loop.
	MaxSampleAttempts int
	TagCacheSize      int
	// Seed fixes the sampling RNG; zero means time-seeded.
	Seed int64
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	norm := opts.Normalizer
	if norm == nil {
		norm = lemma.Default()
	}
	topTags := opts.TopTags
	if topTags <= 0 {
		topTags = 10
	}
	maxAttempts := opts.MaxSampleAttempts
	if maxAttempts <= 0 {
		maxAttempts = markov.DefaultMaxAttempts
	}
	cacheSize := opts.TagCacheSize
	if cacheSize <= 0 {
		cacheSize = store.DefaultTagCacheSize
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		store:       opts.Store,
		norm:        norm,
		cache:       store.NewTagCache(cacheSize),
		topTags:     topTags,
		maxFeatures: opts.MaxFeatures,
		maxAttempts: maxAttempts,
		// Engines are shared across chats; the source must tolerate
		// concurrent Generate calls.
		rng: rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)}),
	}
}

// lockedSource serializes access to a rand.Source the way the global
// math/rand source does, so one *rand.Rand can serve many goroutines.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the underlying corpus store for boot-time checks.
func (e *Engine) Store() store.Store {
	return e.store
}

// IngestBatch is one scraped page's worth of toasts: the raw texts plus
// any site-supplied category tags that apply to all of them.
type IngestBatch struct {
	Source string
	Texts  []string
	// CategoryTags are unioned with the derived tags of every text.
	CategoryTags []string
}

// Ingest tags and stores a batch of toasts. Tag derivation is batch
// TF-IDF over the lemmatized texts; each toast gets its top-weighted
// terms plus the batch's category tags. Returns the recorded audit row.
func (e *Engine) Ingest(ctx context.Context, batch IngestBatch) (store.IngestRun, error) {
	started := time.Now()

	texts := make([]string, 0, len(batch.Texts))
	for _, text := range batch.Texts {
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return store.IngestRun{}, fmt.Errorf("batch from %q has no texts: %w", batch.Source, internalerr.ErrInvalidInput)
	}

	// Re-ingestion into a populated corpus reuses the existing tag ids.
	if e.cache.Len() == 0 {
		ids, err := e.store.AllTagNamesToIDs(ctx)
		if err != nil {
			return store.IngestRun{}, err
		}
		e.cache.Warm(ids)
	}

	categoryTags := e.normalizeAll(batch.CategoryTags)

	docs := make([]string, len(texts))
	for i, text := range texts {
		docs[i] = strings.Join(e.norm.Normalize(text), " ")
	}
	model := tfidf.Fit(docs, e.maxFeatures)

	for i, text := range texts {
		tags := append(model.TopTerms(i, e.topTags), categoryTags...)
		if _, err := e.store.InsertToast(ctx, text, tags, e.cache); err != nil {
			return store.IngestRun{}, fmt.Errorf("insert toast: %w", err)
		}
	}

	run := store.IngestRun{
		ID:         ulid.Make().String(),
		Source:     batch.Source,
		Toasts:     len(texts),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := e.store.RecordIngestRun(ctx, run); err != nil {
		return store.IngestRun{}, fmt.Errorf("record ingest run: %w", err)
	}
	return run, nil
}

// Generate synthesizes a toast the chat has not seen. With tags, the
// model is trained only on matching not-disliked toasts; without, on
// every not-disliked toast. ErrNoMatch when the tag filter matches
// nothing (no exposure is recorded), ErrDegenerateModel when the
// corpus cannot yield a novel sentence within the attempt bound.
func (e *Engine) Generate(ctx context.Context, chatID int64, tags []string) (string, error) {
	var texts []string
	if len(tags) > 0 {
		matches, err := e.store.ToastsMatchingTags(ctx, tags, chatID, store.ScopeNotDisliked)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "", internalerr.ErrNoMatch
		}
		for _, t := range matches {
			texts = append(texts, t.Text)
		}
	} else {
		var err error
		texts, err = e.store.NotDislikedTexts(ctx, chatID)
		if err != nil {
			return "", err
		}
		if len(texts) == 0 {
			return "", internalerr.ErrNoMatch
		}
	}

	seen, err := e.store.GeneratedTextsSeen(ctx, chatID)
	if err != nil {
		return "", err
	}

	chain := markov.Build(texts)
	sentence, err := markov.FitSentence(chain, seen, e.maxAttempts, e.rng)
	if err != nil {
		return "", err
	}

	if err := e.store.MarkExposure(ctx, chatID, store.GeneratedExposure(sentence)); err != nil {
		return "", err
	}
	return sentence, nil
}

// Select serves a stored toast the chat has not seen. With tags, the
// best tag-ranked unseen match wins; without, a uniformly random unseen
// toast. ErrNoMatch when nothing qualifies.
func (e *Engine) Select(ctx context.Context, chatID int64, tags []string) (string, error) {
	var toast store.Toast
	if len(tags) > 0 {
		matches, err := e.store.ToastsMatchingTags(ctx, tags, chatID, store.ScopeUnseen)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "", internalerr.ErrNoMatch
		}
		toast = matches[0]
	} else {
		var err error
		toast, err = e.store.RandomUnseenToast(ctx, chatID)
		if err != nil {
			return "", err
		}
	}

	if err := e.store.MarkExposure(ctx, chatID, store.StoredExposure(toast.ID)); err != nil {
		return "", err
	}
	return toast.Text, nil
}

// TagsFromMessage lemmatizes a free-text description into query tags
// and records them as the chat's current tag query.
func (e *Engine) TagsFromMessage(ctx context.Context, chatID int64, message string) ([]string, error) {
	tags := e.norm.Normalize(message)
	if len(tags) == 0 {
		return nil, fmt.Errorf("no usable tags in %q: %w", message, internalerr.ErrInvalidInput)
	}
	if err := e.store.RecordTagQuery(ctx, chatID, tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// React records a like/dislike for the chat's most recent exposure.
// A like on a generated toast promotes it: the text is re-lemmatized,
// re-scored as a single-document batch, and inserted into the corpus
// under its top-weighted terms.
func (e *Engine) React(ctx context.Context, chatID int64, liked bool) error {
	prevGenerated, err := e.store.SetLastExposureReaction(ctx, chatID, liked)
	if err != nil {
		return err
	}
	if !liked || prevGenerated == "" {
		return nil
	}

	doc := strings.Join(e.norm.Normalize(prevGenerated), " ")
	model := tfidf.Fit([]string{doc}, e.maxFeatures)
	tags := model.TopTerms(0, e.topTags)

	if _, err := e.store.PromoteGeneratedToToast(ctx, chatID, prevGenerated, tags, e.cache); err != nil {
		return fmt.Errorf("promote generated toast: %w", err)
	}
	return nil
}

// Response is one served toast plus how it was scoped, which the
// transport uses to pick reply affordances.
type Response struct {
	Text      string
	Stage     stage.Stage
	TagScoped bool
}

// RespondToReaction serves the next toast after a reaction button
// press. The chat's last stage decides whether "another one" means
// another stored toast or another generated one, and whether the
// previous tag query still applies. The caller records the returned
// stage once the reply is delivered.
func (e *Engine) RespondToReaction(ctx context.Context, chatID int64) (Response, error) {
	last, err := e.store.LastStage(ctx, chatID)
	if err != nil {
		return Response{}, err
	}
	next, ok := last.NextServe()
	if !ok {
		return Response{}, fmt.Errorf("stage %q cannot serve: %w", last, internalerr.ErrInvalidInput)
	}

	var tags []string
	if next.IsTagScoped() {
		tags, err = e.store.LastTagQuery(ctx, chatID)
		if err != nil {
			return Response{}, err
		}
	}

	var text string
	if next.IsSelect() {
		text, err = e.Select(ctx, chatID, tags)
	} else {
		text, err = e.Generate(ctx, chatID, tags)
	}
	if err != nil {
		return Response{}, err
	}

	return Response{Text: text, Stage: next, TagScoped: next.IsTagScoped()}, nil
}

// Bootstrap seeds the stage vocabulary. Safe to call on every boot.
func (e *Engine) Bootstrap(ctx context.Context) error {
	names := make([]string, 0, len(stage.All()))
	for _, s := range stage.All() {
		names = append(names, s.Name())
	}
	return e.store.SeedStages(ctx, names)
}

// NeedsIngestion reports whether the corpus is empty, which gates the
// serving path behind a first-boot scrape.
func (e *Engine) NeedsIngestion(ctx context.Context) (bool, error) {
	return e.store.IsEmpty(ctx)
}

// RecordStage appends a stage visit for the chat.
func (e *Engine) RecordStage(ctx context.Context, chatID int64, s stage.Stage) error {
	return e.store.RecordStage(ctx, chatID, s)
}

// LastStage returns the chat's most recent stage.
func (e *Engine) LastStage(ctx context.Context, chatID int64) (stage.Stage, error) {
	return e.store.LastStage(ctx, chatID)
}

func (e *Engine) normalizeAll(raw []string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, e.norm.Normalize(r)...)
	}
	return out
}

// IsNoMatch reports whether err is the "nothing found" outcome that the
// transport renders as a user-facing message rather than a failure.
func IsNoMatch(err error) bool {
	return errors.Is(err, internalerr.ErrNoMatch)
}

// IsDegenerate reports whether err is the "could not generate" outcome.
func IsDegenerate(err error) bool {
	return errors.Is(err, internalerr.ErrDegenerateModel)
}
