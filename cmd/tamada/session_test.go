package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/okunev/tamada/pkg/tamada"
	"github.com/okunev/tamada/pkg/tamada/store/memstore"
)

func newTestSession(t *testing.T, toasts map[string][]string) (*Session, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	eng := tamada.New(tamada.Options{Store: memstore.New(), Seed: 1})
	if err := eng.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	for text, tags := range toasts {
		if _, err := eng.Store().InsertToast(ctx, text, tags, nil); err != nil {
			t.Fatalf("InsertToast: %v", err)
		}
	}

	var out bytes.Buffer
	return NewSession(eng, 1, &out), &out
}

func send(t *testing.T, s *Session, out *bytes.Buffer, input string) string {
	t.Helper()
	out.Reset()
	if err := s.Handle(context.Background(), input); err != nil {
		t.Fatalf("Handle(%q): %v", input, err)
	}
	return out.String()
}

func TestSessionMenuFlow(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Выпьем за удачу!": nil,
	})

	got := send(t, s, out, "/start")
	if !strings.Contains(got, btnStart) {
		t.Errorf("/start reply missing start button: %q", got)
	}

	got = send(t, s, out, btnStart)
	if !strings.Contains(got, msgMainMenu) {
		t.Errorf("main menu reply = %q", got)
	}

	got = send(t, s, out, btnSelect)
	if !strings.Contains(got, msgCategoryMenu) {
		t.Errorf("category menu reply = %q", got)
	}

	got = send(t, s, out, btnRandom)
	if !strings.Contains(got, "Выпьем за удачу!") {
		t.Errorf("random select reply = %q", got)
	}
	if !strings.Contains(got, btnLike) || !strings.Contains(got, btnDislike) {
		t.Errorf("toast reply missing reaction buttons: %q", got)
	}
	if strings.Contains(got, btnChangeTags) {
		t.Errorf("random toast must not offer tag change: %q", got)
	}
}

func TestSessionExhaustionAfterReaction(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Единственный тост": nil,
	})

	send(t, s, out, "/start")
	send(t, s, out, btnStart)
	send(t, s, out, btnSelect)
	send(t, s, out, btnRandom)

	// The like asks for another stored toast, but the corpus of one is
	// spent.
	got := send(t, s, out, btnLike)
	if !strings.Contains(got, msgExhausted) {
		t.Errorf("reply = %q, want exhaustion message", got)
	}
}

func TestSessionTagFlow(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Первый про любовь": {"любовь"},
		"Второй про любовь": {"любовь"},
	})

	send(t, s, out, "/start")
	send(t, s, out, btnStart)
	send(t, s, out, btnSelect)

	got := send(t, s, out, btnByTags)
	if !strings.Contains(got, msgGimmeTags) {
		t.Errorf("tag prompt reply = %q", got)
	}

	got = send(t, s, out, "любовь")
	if !strings.Contains(got, "про любовь") {
		t.Errorf("tag select reply = %q", got)
	}
	if !strings.Contains(got, btnChangeTags) {
		t.Errorf("tag-scoped toast must offer tag change: %q", got)
	}
	first := got

	// A like in the tag flow serves the other matching toast.
	got = send(t, s, out, btnLike)
	if !strings.Contains(got, "про любовь") {
		t.Errorf("follow-up reply = %q", got)
	}
	if strings.Contains(first, "Первый") == strings.Contains(got, "Первый") {
		t.Errorf("same toast served twice: %q then %q", first, got)
	}
}

func TestSessionTagNotFound(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Выпьем за гостей!": {"гость"},
	})

	send(t, s, out, "/start")
	send(t, s, out, "/select_keywords_toast")

	got := send(t, s, out, "космонавтика")
	if !strings.Contains(got, msgTagNotFound) {
		t.Errorf("reply = %q, want tag-not-found", got)
	}
}

func TestSessionGenerateFlow(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Выпьем за всё хорошее и светлое в жизни": nil,
	})

	send(t, s, out, "/start")
	got := send(t, s, out, "/generate_random_toast")
	if !strings.Contains(got, "Выпьем") {
		t.Errorf("generated reply = %q", got)
	}

	// After a dislike the sentence stays excluded, and the one-toast
	// corpus cannot produce anything else.
	got = send(t, s, out, btnDislike)
	if !strings.Contains(got, msgCannotMake) {
		t.Errorf("reply = %q, want cannot-generate message", got)
	}
}

func TestSessionFreeTextOutsideTagPrompt(t *testing.T) {
	s, out := newTestSession(t, map[string][]string{
		"Выпьем за удачу!": nil,
	})

	send(t, s, out, "/start")
	got := send(t, s, out, "привет, как дела?")
	if !strings.Contains(got, msgNotUnderstood) {
		t.Errorf("reply = %q, want not-understood", got)
	}
}
