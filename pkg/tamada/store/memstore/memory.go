// Package memstore provides an in-memory Store implementation for
// tests and ephemeral sessions. All state is lost on Close.
package memstore

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
	"github.com/okunev/tamada/pkg/tamada/stage"
	"github.com/okunev/tamada/pkg/tamada/store"
)

type toastRec struct {
	id   int64
	text string
	tags map[int64]struct{}
}

type stageVisit struct {
	chatID int64
	name   string
}

type exposureRec struct {
	chatID  int64
	toastID int64 // 0 when generated
	genText string
	hasGen  bool
	liked   bool
}

type tagQueryRec struct {
	chatID int64
	tags   []string
}

// memStore implements the Store interface in memory
type memStore struct {
	mu sync.RWMutex

	toasts      []toastRec
	nextToastID int64

	tags      map[string]int64
	nextTagID int64

	stages      map[string]struct{}
	stageVisits []stageVisit

	exposures  []exposureRec
	tagQueries []tagQueryRec
	ingestRuns []store.IngestRun

	rng *rand.Rand
}

// New creates an empty in-memory store.
func New() store.Store {
	return &memStore{
		nextToastID: 1,
		nextTagID:   1,
		tags:        make(map[string]int64),
		stages:      make(map[string]struct{}),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *memStore) Close() error {
	return nil
}

func (m *memStore) IsEmpty(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.toasts) == 0, nil
}

func (m *memStore) InsertToast(ctx context.Context, text string, tags []string, cache *store.TagCache) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertToastLocked(text, tags, cache), nil
}

func (m *memStore) insertToastLocked(text string, tags []string, cache *store.TagCache) int64 {
	rec := toastRec{
		id:   m.nextToastID,
		text: text,
		tags: make(map[int64]struct{}, len(tags)),
	}
	m.nextToastID++

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		id, ok := cache.Get(tag)
		if !ok {
			id, ok = m.tags[tag]
			if !ok {
				id = m.nextTagID
				m.nextTagID++
				m.tags[tag] = id
			}
			cache.Put(tag, id)
		}
		rec.tags[id] = struct{}{}
	}

	m.toasts = append(m.toasts, rec)
	return rec.id
}

func (m *memStore) AllTagNamesToIDs(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[string]int64, len(m.tags))
	for name, id := range m.tags {
		ids[name] = id
	}
	return ids, nil
}

func (m *memStore) SeedStages(ctx context.Context, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		m.stages[name] = struct{}{}
	}
	return nil
}

func (m *memStore) RecordStage(ctx context.Context, chatID int64, s stage.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stages[s.Name()]; !ok {
		return fmt.Errorf("stage %q: %w", s.Name(), internalerr.ErrNotFound)
	}
	m.stageVisits = append(m.stageVisits, stageVisit{chatID: chatID, name: s.Name()})
	return nil
}

func (m *memStore) LastStage(ctx context.Context, chatID int64) (stage.Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.stageVisits) - 1; i >= 0; i-- {
		if m.stageVisits[i].chatID == chatID {
			return stage.FromName(m.stageVisits[i].name)
		}
	}
	return stage.Unknown, fmt.Errorf("chat %d has no stage: %w", chatID, internalerr.ErrNotFound)
}

func (m *memStore) MarkExposure(ctx context.Context, chatID int64, e store.Exposure) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := exposureRec{chatID: chatID, liked: e.Liked}
	switch e.Kind {
	case store.Generated:
		rec.genText = e.Text
		rec.hasGen = true
	case store.Stored:
		rec.toastID = e.ToastID
	}
	m.exposures = append(m.exposures, rec)
	return nil
}

func (m *memStore) lastExposureLocked(chatID int64) int {
	for i := len(m.exposures) - 1; i >= 0; i-- {
		if m.exposures[i].chatID == chatID {
			return i
		}
	}
	return -1
}

func (m *memStore) SetLastExposureReaction(ctx context.Context, chatID int64, liked bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.lastExposureLocked(chatID)
	if i < 0 {
		return "", fmt.Errorf("chat %d has no exposure: %w", chatID, internalerr.ErrNotFound)
	}
	m.exposures[i].liked = liked
	return m.exposures[i].genText, nil
}

func (m *memStore) PromoteGeneratedToToast(ctx context.Context, chatID int64, text string, tags []string, cache *store.TagCache) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.lastExposureLocked(chatID)
	if i < 0 {
		return 0, fmt.Errorf("chat %d has no exposure to promote: %w", chatID, internalerr.ErrNotFound)
	}

	toastID := m.insertToastLocked(text, tags, cache)
	m.exposures[i].toastID = toastID
	m.exposures[i].genText = ""
	m.exposures[i].hasGen = false
	return toastID, nil
}

func (m *memStore) GeneratedTextsSeen(ctx context.Context, chatID int64) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range m.exposures {
		if e.chatID == chatID && e.hasGen {
			seen[e.genText] = struct{}{}
		}
	}
	return seen, nil
}

func (m *memStore) seenToastsLocked(chatID int64, dislikedOnly bool) map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, e := range m.exposures {
		if e.chatID != chatID || e.toastID == 0 {
			continue
		}
		if dislikedOnly && e.liked {
			continue
		}
		out[e.toastID] = struct{}{}
	}
	return out
}

func (m *memStore) RandomUnseenToast(ctx context.Context, chatID int64) (store.Toast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := m.seenToastsLocked(chatID, false)
	var pool []store.Toast
	for _, t := range m.toasts {
		if _, ok := seen[t.id]; !ok {
			pool = append(pool, store.Toast{ID: t.id, Text: t.text})
		}
	}
	if len(pool) == 0 {
		return store.Toast{}, internalerr.ErrNoMatch
	}
	return pool[m.rng.Intn(len(pool))], nil
}

func (m *memStore) NotDislikedTexts(ctx context.Context, chatID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	disliked := m.seenToastsLocked(chatID, true)
	var texts []string
	for _, t := range m.toasts {
		if _, ok := disliked[t.id]; !ok {
			texts = append(texts, t.text)
		}
	}
	return texts, nil
}

func (m *memStore) ToastsMatchingTags(ctx context.Context, tags []string, chatID int64, scope store.MatchScope) ([]store.Toast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(tags))
	for _, tag := range tags {
		if id, ok := m.tags[tag]; ok {
			wanted[id] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	var excluded map[int64]struct{}
	switch scope {
	case store.ScopeUnseen:
		excluded = m.seenToastsLocked(chatID, false)
	case store.ScopeNotDisliked:
		excluded = m.seenToastsLocked(chatID, true)
	default:
		return nil, fmt.Errorf("match scope %d: %w", scope, internalerr.ErrInvalidInput)
	}

	type match struct {
		toast store.Toast
		count int
	}
	var matches []match
	for _, t := range m.toasts {
		if _, ok := excluded[t.id]; ok {
			continue
		}
		count := 0
		for id := range wanted {
			if _, ok := t.tags[id]; ok {
				count++
			}
		}
		if count > 0 {
			matches = append(matches, match{toast: store.Toast{ID: t.id, Text: t.text}, count: count})
		}
	}

	// Stable insertion-order sort, best tag coverage first.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].count > matches[j-1].count; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	out := make([]store.Toast, 0, len(matches))
	for _, mt := range matches {
		out = append(out, mt.toast)
	}
	return out, nil
}

func (m *memStore) RecordTagQuery(ctx context.Context, chatID int64, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]string, len(tags))
	copy(copied, tags)
	m.tagQueries = append(m.tagQueries, tagQueryRec{chatID: chatID, tags: copied})
	return nil
}

func (m *memStore) LastTagQuery(ctx context.Context, chatID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.tagQueries) - 1; i >= 0; i-- {
		if m.tagQueries[i].chatID == chatID {
			out := make([]string, len(m.tagQueries[i].tags))
			copy(out, m.tagQueries[i].tags)
			return out, nil
		}
	}
	return nil, fmt.Errorf("chat %d has no tag query: %w", chatID, internalerr.ErrNotFound)
}

func (m *memStore) RecordIngestRun(ctx context.Context, run store.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestRuns = append(m.ingestRuns, run)
	return nil
}

func (m *memStore) IngestRuns(ctx context.Context) ([]store.IngestRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]store.IngestRun, len(m.ingestRuns))
	copy(out, m.ingestRuns)
	return out, nil
}
