// Package store defines the persisted corpus entities and the queries
// the engine runs over them. Implementations live in the sqlite and
// memstore subpackages.
package store

import (
	"context"
	"time"

	"github.com/okunev/tamada/pkg/tamada/stage"
)

// Store is the corpus persistence interface. All read-then-update
// sequences (reaction, promotion) are serialized per implementation so
// "most recent exposure for this chat" cannot race its own mutation.
type Store interface {
	Close() error

	// Corpus
	IsEmpty(ctx context.Context) (bool, error)
	InsertToast(ctx context.Context, text string, tags []string, cache *TagCache) (int64, error)
	AllTagNamesToIDs(ctx context.Context) (map[string]int64, error)

	// Stages
	SeedStages(ctx context.Context, names []string) error
	RecordStage(ctx context.Context, chatID int64, s stage.Stage) error
	LastStage(ctx context.Context, chatID int64) (stage.Stage, error)

	// Exposures
	MarkExposure(ctx context.Context, chatID int64, e Exposure) error
	SetLastExposureReaction(ctx context.Context, chatID int64, liked bool) (prevGenerated string, err error)
	PromoteGeneratedToToast(ctx context.Context, chatID int64, text string, tags []string, cache *TagCache) (int64, error)
	GeneratedTextsSeen(ctx context.Context, chatID int64) (map[string]struct{}, error)

	// Retrieval
	RandomUnseenToast(ctx context.Context, chatID int64) (Toast, error)
	NotDislikedTexts(ctx context.Context, chatID int64) ([]string, error)
	ToastsMatchingTags(ctx context.Context, tags []string, chatID int64, scope MatchScope) ([]Toast, error)

	// Tag queries
	RecordTagQuery(ctx context.Context, chatID int64, tags []string) error
	LastTagQuery(ctx context.Context, chatID int64) ([]string, error)

	// Ingestion audit
	RecordIngestRun(ctx context.Context, run IngestRun) error
	IngestRuns(ctx context.Context) ([]IngestRun, error)
}

// Toast is one stored toast text.
type Toast struct {
	ID   int64
	Text string
}

// IngestRun is an audit row for one source ingestion pass.
type IngestRun struct {
	ID         string // ULID, assigned by the caller
	Source     string
	Toasts     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExposureKind discriminates the Exposure variant.
type ExposureKind int

const (
	// Stored marks an exposure referencing a corpus toast.
	Stored ExposureKind = iota
	// Generated marks an exposure carrying synthesized text.
	Generated
)

// Exposure records that a chat received a toast. Exactly one of ToastID
// and Text is meaningful, selected by Kind; build values through the
// constructors so the default reaction matches the kind (retrieved
// content is assumed acceptable, generated content unwanted until the
// user says otherwise).
type Exposure struct {
	Kind    ExposureKind
	ToastID int64
	Text    string
	Liked   bool
}

// StoredExposure marks a corpus toast as sent.
func StoredExposure(toastID int64) Exposure {
	return Exposure{Kind: Stored, ToastID: toastID, Liked: true}
}

// GeneratedExposure marks a synthesized toast as sent.
func GeneratedExposure(text string) Exposure {
	return Exposure{Kind: Generated, Text: text, Liked: false}
}

// MatchScope selects which exposures exclude a toast from tag matching.
type MatchScope int

const (
	// ScopeUnseen excludes toasts the chat has any exposure for.
	ScopeUnseen MatchScope = iota
	// ScopeNotDisliked excludes only explicitly disliked toasts.
	ScopeNotDisliked
)
