package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
	"github.com/okunev/tamada/pkg/tamada/stage"
	"github.com/okunev/tamada/pkg/tamada/store"
)

// TestMemStoreToastLifecycle walks a toast from insert through exposure
// and reaction.
func TestMemStoreToastLifecycle(t *testing.T) {
	ctx := context.Background()
	st := New()
	defer st.Close()

	empty, err := st.IsEmpty(ctx)
	if err != nil || !empty {
		t.Fatalf("IsEmpty = %v, %v; want true, nil", empty, err)
	}

	cache := store.NewTagCache(16)
	id, err := st.InsertToast(ctx, "Выпьем за гостей!", []string{"гость", "выпить"}, cache)
	if err != nil {
		t.Fatalf("InsertToast: %v", err)
	}

	const chatID = 1
	toast, err := st.RandomUnseenToast(ctx, chatID)
	if err != nil {
		t.Fatalf("RandomUnseenToast: %v", err)
	}
	if toast.ID != id {
		t.Fatalf("got toast %d, want %d", toast.ID, id)
	}

	if err := st.MarkExposure(ctx, chatID, store.StoredExposure(toast.ID)); err != nil {
		t.Fatalf("MarkExposure: %v", err)
	}
	if _, err := st.RandomUnseenToast(ctx, chatID); !errors.Is(err, internalerr.ErrNoMatch) {
		t.Fatalf("exhausted: got %v, want ErrNoMatch", err)
	}

	if _, err := st.SetLastExposureReaction(ctx, chatID, false); err != nil {
		t.Fatalf("SetLastExposureReaction: %v", err)
	}
	texts, err := st.NotDislikedTexts(ctx, chatID)
	if err != nil {
		t.Fatalf("NotDislikedTexts: %v", err)
	}
	if len(texts) != 0 {
		t.Errorf("disliked toast still listed: %v", texts)
	}
}

// TestMemStorePromotion verifies generated exposures become corpus toasts.
func TestMemStorePromotion(t *testing.T) {
	ctx := context.Background()
	st := New()
	defer st.Close()

	const chatID = 2
	const text = "За встречу!"

	if err := st.MarkExposure(ctx, chatID, store.GeneratedExposure(text)); err != nil {
		t.Fatalf("MarkExposure: %v", err)
	}

	prev, err := st.SetLastExposureReaction(ctx, chatID, true)
	if err != nil {
		t.Fatalf("SetLastExposureReaction: %v", err)
	}
	if prev != text {
		t.Fatalf("prev = %q, want %q", prev, text)
	}

	cache := store.NewTagCache(16)
	toastID, err := st.PromoteGeneratedToToast(ctx, chatID, text, []string{"встреча"}, cache)
	if err != nil {
		t.Fatalf("PromoteGeneratedToToast: %v", err)
	}

	seen, err := st.GeneratedTextsSeen(ctx, chatID)
	if err != nil {
		t.Fatalf("GeneratedTextsSeen: %v", err)
	}
	if len(seen) != 0 {
		t.Errorf("seen set after promotion = %v, want empty", seen)
	}

	matches, err := st.ToastsMatchingTags(ctx, []string{"встреча"}, chatID+1, store.ScopeUnseen)
	if err != nil {
		t.Fatalf("ToastsMatchingTags: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != toastID {
		t.Errorf("matches = %v, want promoted toast %d", matches, toastID)
	}
}

// TestMemStoreTagRanking checks best-coverage-first ordering.
func TestMemStoreTagRanking(t *testing.T) {
	ctx := context.Background()
	st := New()
	defer st.Close()

	cache := store.NewTagCache(16)
	if _, err := st.InsertToast(ctx, "один", []string{"любовь"}, cache); err != nil {
		t.Fatalf("InsertToast: %v", err)
	}
	best, err := st.InsertToast(ctx, "два", []string{"любовь", "дружба"}, cache)
	if err != nil {
		t.Fatalf("InsertToast: %v", err)
	}

	matches, err := st.ToastsMatchingTags(ctx, []string{"любовь", "дружба"}, 3, store.ScopeUnseen)
	if err != nil {
		t.Fatalf("ToastsMatchingTags: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != best {
		t.Errorf("matches = %v, want toast %d first", matches, best)
	}
}

// TestMemStoreStagesAndQueries covers the remaining per-chat records.
func TestMemStoreStagesAndQueries(t *testing.T) {
	ctx := context.Background()
	st := New()
	defer st.Close()

	names := make([]string, 0, len(stage.All()))
	for _, s := range stage.All() {
		names = append(names, s.Name())
	}
	if err := st.SeedStages(ctx, names); err != nil {
		t.Fatalf("SeedStages: %v", err)
	}

	const chatID = 4
	if err := st.RecordStage(ctx, chatID, stage.GenerateMenu); err != nil {
		t.Fatalf("RecordStage: %v", err)
	}
	got, err := st.LastStage(ctx, chatID)
	if err != nil || got != stage.GenerateMenu {
		t.Fatalf("LastStage = %v, %v; want GenerateMenu, nil", got, err)
	}

	if err := st.RecordTagQuery(ctx, chatID, []string{"свадьба"}); err != nil {
		t.Fatalf("RecordTagQuery: %v", err)
	}
	tags, err := st.LastTagQuery(ctx, chatID)
	if err != nil || len(tags) != 1 || tags[0] != "свадьба" {
		t.Fatalf("LastTagQuery = %v, %v", tags, err)
	}
}
