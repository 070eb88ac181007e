package scrape

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	return u
}

func TestLookup(t *testing.T) {
	for _, id := range []string{"alcofan", "toast-ru", "pozdravuha"} {
		if _, err := Lookup(id); err != nil {
			t.Errorf("Lookup(%q): %v", id, err)
		}
	}
	if _, err := Lookup("nope"); err == nil {
		t.Error("Lookup of unregistered source should fail")
	}
}

func TestAlcofanIndex(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<a rel="noopener" href="/tosty-svadba">Свадебные тосты</a>
<a rel="noopener" href="//alcofan.com/tosty-dr">Тосты на день рождения</a>
<a href="/reklama">Реклама</a>
</body></html>`)

	page := alcofanExtractor{}.Extract(doc, mustURL(t, "https://alcofan.com/luchshie-tosty-interneta"))
	if len(page.Texts) != 0 {
		t.Errorf("index page yielded texts: %v", page.Texts)
	}
	want := []string{
		"https://alcofan.com/tosty-svadba",
		"https://alcofan.com/tosty-dr",
	}
	if len(page.NextURLs) != len(want) {
		t.Fatalf("NextURLs = %v, want %v", page.NextURLs, want)
	}
	for i := range want {
		if page.NextURLs[i] != want[i] {
			t.Errorf("NextURLs[%d] = %q, want %q", i, page.NextURLs[i], want[i])
		}
	}
}

func TestAlcofanSection(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<h1>Свадебные тосты</h1>
<article>
<p>В этом разделе собраны лучшие свадебные тосты.</p>
<p>Выпьем за молодых!</p>
<p>*****</p>
<p><strong>Реклама</strong></p>
<p>Тосты на Новый год смотрите в другом разделе</p>
<p>* За любовь и согласие!</p>
</article>
</body></html>`)

	page := alcofanExtractor{}.Extract(doc, mustURL(t, "https://alcofan.com/tosty-svadba"))
	want := []string{"Выпьем за молодых!", "За любовь и согласие!"}
	if len(page.Texts) != len(want) {
		t.Fatalf("Texts = %v, want %v", page.Texts, want)
	}
	for i := range want {
		if page.Texts[i] != want[i] {
			t.Errorf("Texts[%d] = %q, want %q", i, page.Texts[i], want[i])
		}
	}
	if len(page.Tags) != 1 || page.Tags[0] != "Свадебные тосты" {
		t.Errorf("Tags = %v, want the section header", page.Tags)
	}
}

func TestToastRuSection(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<h1>Тосты за дружбу</h1>
<p>шапка страницы</p>
<p>Выпьем за то,</p>
<p>чтобы друзья были рядом!</p>
<p align="center">***</p>
<p>За верную дружбу!</p>
<p align="center">***</p>
<table><tr><td class="navlink"><a href="/toast/friend1.html">1</a><a href="/toast/friend2.html">2</a></td></tr></table>
</body></html>`)

	page := toastRuExtractor{}.Extract(doc, mustURL(t, "http://www.toast.ru/toast/friend.html"))
	want := []string{
		"Выпьем за то, чтобы друзья были рядом!",
		"За верную дружбу!",
	}
	if len(page.Texts) != len(want) {
		t.Fatalf("Texts = %v, want %v", page.Texts, want)
	}
	for i := range want {
		if page.Texts[i] != want[i] {
			t.Errorf("Texts[%d] = %q, want %q", i, page.Texts[i], want[i])
		}
	}
	if len(page.NextURLs) != 2 {
		t.Errorf("NextURLs = %v, want both navlink pages", page.NextURLs)
	}
}

func TestPozdravuhaSection(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<h1>Тосты на юбилей</h1>
<div class="filters menu-block bg3 menu-left-subrazd">
<a href="/p/tosty/yubiley">Юбилейные</a>
</div>
<p class="item pozdravuha_ru_text">Выпьем за юбиляра!<br>Многие лета!<span>реклама</span></p>
<p class="item pozdravuha_ru_text"><a href="/share">поделиться</a>За круглую дату!</p>
<p class="other">не тост</p>
<div class="pages_next"><a href="/p/tosty/yubiley/2">Далее</a></div>
</body></html>`)

	page := pozdravuhaExtractor{}.Extract(doc, mustURL(t, "https://www.pozdravuha.ru/p/tosty/yubiley"))
	want := []string{
		"Выпьем за юбиляра!\nМногие лета!",
		"За круглую дату!",
	}
	if len(page.Texts) != len(want) {
		t.Fatalf("Texts = %v, want %v", page.Texts, want)
	}
	for i := range want {
		if page.Texts[i] != want[i] {
			t.Errorf("Texts[%d] = %q, want %q", i, page.Texts[i], want[i])
		}
	}

	wantNext := []string{
		"https://www.pozdravuha.ru/p/tosty/yubiley",
		"https://www.pozdravuha.ru/p/tosty/yubiley/2",
	}
	if len(page.NextURLs) != len(wantNext) {
		t.Fatalf("NextURLs = %v, want %v", page.NextURLs, wantNext)
	}
	if len(page.Tags) != 1 || page.Tags[0] != "Тосты на юбилей" {
		t.Errorf("Tags = %v", page.Tags)
	}
}

// fakeFetcher serves pre-parsed documents by URL.
type fakeFetcher struct {
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	f.calls++
	src, ok := f.pages[pageURL]
	if !ok {
		return nil, context.Canceled
	}
	return html.Parse(strings.NewReader(src))
}

func TestWalkFollowsPagination(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://www.pozdravuha.ru/p/tosty": `
<html><body>
<p class="item pozdravuha_ru_text">Первый тост</p>
<div class="pages_next"><a href="/p/tosty/2">Далее</a></div>
</body></html>`,
		"https://www.pozdravuha.ru/p/tosty/2": `
<html><body>
<p class="item pozdravuha_ru_text">Первый тост</p>
<p class="item pozdravuha_ru_text">Второй тост</p>
</body></html>`,
	}}

	res, err := Walk(context.Background(), fetcher, pozdravuhaExtractor{}, "https://www.pozdravuha.ru/p/tosty", 10)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
	// Duplicate texts across pages collapse.
	want := []string{"Первый тост", "Второй тост"}
	if len(res.Texts) != len(want) {
		t.Fatalf("Texts = %v, want %v", res.Texts, want)
	}
	for i := range want {
		if res.Texts[i] != want[i] {
			t.Errorf("Texts[%d] = %q, want %q", i, res.Texts[i], want[i])
		}
	}
}

func TestWalkHonorsPageCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/1": `<html><body>
<p class="item pozdravuha_ru_text">тост</p>
<div class="pages_next"><a href="/2">Далее</a></div>
</body></html>`,
		"https://example.com/2": `<html><body>
<div class="pages_next"><a href="/3">Далее</a></div>
</body></html>`,
		"https://example.com/3": `<html><body></body></html>`,
	}}

	res, err := Walk(context.Background(), fetcher, pozdravuhaExtractor{}, "https://example.com/1", 2)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if res.Pages != 2 || fetcher.calls != 2 {
		t.Errorf("Pages = %d, calls = %d; want 2 and 2", res.Pages, fetcher.calls)
	}
}

func TestWalkFirstPageFailure(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	if _, err := Walk(context.Background(), fetcher, pozdravuhaExtractor{}, "https://example.com/missing", 5); err == nil {
		t.Fatal("Walk should fail when the first page cannot be fetched")
	}
}
