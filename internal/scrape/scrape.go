// Package scrape collects toast texts from the supported web sources.
// Each source has a registered Extractor that knows the site's markup;
// the Walker drives pagination and feeds pages through it.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/net/html"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
)

const userAgent = "tamada-bot/1.0 (+https://github.com/okunev/tamada)"

// Page is one extracted page: the toast texts on it, the site-supplied
// category tags that apply to them, and links to further pages.
type Page struct {
	Texts    []string
	Tags     []string
	NextURLs []string
}

// Extractor pulls toasts out of one source's markup.
type Extractor interface {
	// Extract parses a fetched document. base is the page's own URL,
	// used to resolve relative pagination links.
	Extract(doc *html.Node, base *url.URL) Page
}

var registry = map[string]Extractor{}

// Register binds a source id to its extractor. Called from init.
func Register(id string, e Extractor) {
	registry[id] = e
}

// Lookup returns the extractor for a source id.
func Lookup(id string) (Extractor, error) {
	e, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", id, internalerr.ErrNotFound)
	}
	return e, nil
}

// SourceIDs returns the registered source ids, sorted.
func SourceIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fetcher retrieves and parses one page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*html.Node, error)
}

// Client is the HTTP-backed Fetcher.
type Client struct {
	http *http.Client
}

// NewClient creates a Client with a request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Fetch downloads and parses a page.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// Result accumulates everything a walk collected.
type Result struct {
	Texts []string
	Tags  []string
	Pages int
}

// Walk fetches pages breadth-first starting at startURL, up to maxPages,
// deduplicating both URLs and texts. Individual page failures are
// skipped; only a failure on the very first page is fatal.
func Walk(ctx context.Context, f Fetcher, e Extractor, startURL string, maxPages int) (Result, error) {
	var res Result

	queue := []string{startURL}
	visited := map[string]struct{}{startURL: {}}
	seenTexts := map[string]struct{}{}
	seenTags := map[string]struct{}{}

	for len(queue) > 0 && res.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pageURL := queue[0]
		queue = queue[1:]

		doc, err := f.Fetch(ctx, pageURL)
		if err != nil {
			if res.Pages == 0 {
				return res, err
			}
			continue
		}
		res.Pages++

		base, err := url.Parse(pageURL)
		if err != nil {
			continue
		}
		page := e.Extract(doc, base)

		for _, text := range page.Texts {
			if _, ok := seenTexts[text]; ok {
				continue
			}
			seenTexts[text] = struct{}{}
			res.Texts = append(res.Texts, text)
		}
		for _, tag := range page.Tags {
			if _, ok := seenTags[tag]; ok {
				continue
			}
			seenTags[tag] = struct{}{}
			res.Tags = append(res.Tags, tag)
		}
		for _, next := range page.NextURLs {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	return res, nil
}
