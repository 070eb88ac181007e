package scrape

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func init() {
	Register("alcofan", alcofanExtractor{})
	Register("toast-ru", toastRuExtractor{})
	Register("pozdravuha", pozdravuhaExtractor{})
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// pageHeader returns the page's h1 text, the site's section name.
func pageHeader(doc *html.Node) string {
	for _, h1 := range findAll(doc, "h1", "") {
		if text := nodeText(h1); text != "" {
			return text
		}
	}
	return ""
}

// alcofanExtractor handles alcofan.com. The toast index links sections
// with rel=noopener anchors; a section page holds its toasts as plain
// paragraphs inside the article body, with "*****" separators and a
// leading section description to skip.
type alcofanExtractor struct{}

func (alcofanExtractor) Extract(doc *html.Node, base *url.URL) Page {
	var page Page

	articles := findAll(doc, "article", "")
	if len(articles) == 0 {
		// Index page: collect section links.
		for _, a := range findAll(doc, "a", "") {
			if attr(a, "rel") != "noopener" {
				continue
			}
			if href := resolve(base, attr(a, "href")); href != "" {
				page.NextURLs = append(page.NextURLs, href)
			}
		}
		return page
	}

	if header := pageHeader(doc); header != "" {
		page.Tags = append(page.Tags, header)
	}

	var texts []string
	for _, p := range findAll(articles[0], "p", "") {
		if len(findAll(p, "strong", "")) > 0 {
			continue
		}
		text := strings.TrimLeft(nodeText(p), " *")
		if text == "" || strings.HasPrefix(text, "Тосты на") {
			continue
		}
		texts = append(texts, text)
	}
	// The first paragraph of every section is its description.
	if len(texts) > 1 {
		page.Texts = texts[1:]
	}

	return page
}

// toastRuExtractor handles toast.ru. Toasts span several bare <p>
// nodes; a paragraph carrying any attribute is the separator between
// them. Sections are linked with class menutoast, further pages of a
// section from the navlink cell.
type toastRuExtractor struct{}

func (toastRuExtractor) Extract(doc *html.Node, base *url.URL) Page {
	var page Page

	for _, a := range findAll(doc, "a", "menutoast") {
		if href := resolve(base, attr(a, "href")); href != "" {
			page.NextURLs = append(page.NextURLs, href)
		}
	}
	for _, td := range findAll(doc, "td", "navlink") {
		for _, a := range findAll(td, "a", "") {
			if href := resolve(base, attr(a, "href")); href != "" {
				page.NextURLs = append(page.NextURLs, href)
			}
		}
	}

	if header := pageHeader(doc); header != "" {
		page.Tags = append(page.Tags, header)
	}

	paragraphs := findAll(doc, "p", "")
	if len(paragraphs) > 0 {
		paragraphs = paragraphs[1:]
	}

	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		if text := joinWrappedLines(current); text != "" {
			page.Texts = append(page.Texts, text)
		}
		current = nil
	}

	for _, p := range paragraphs {
		if len(p.Attr) != 0 {
			flush()
			continue
		}
		if len(findAll(p, "p", "")) > 1 || len(findAll(p, "font", "")) > 0 {
			continue
		}
		if text := nodeText(p); text != "" {
			current = append(current, text)
		}
	}
	flush()

	return page
}

// joinWrappedLines merges hard-wrapped lines: a line starting with a
// lowercase Cyrillic letter continues the previous one.
func joinWrappedLines(lines []string) string {
	var all []string
	for _, block := range lines {
		for _, line := range strings.Split(block, "\n") {
			if line != "" {
				all = append(all, line)
			}
		}
	}

	var out strings.Builder
	for i, line := range all {
		if i > 0 {
			r := []rune(line)[0]
			if unicode.Is(unicode.Cyrillic, r) && unicode.IsLower(r) {
				out.WriteString(" ")
			} else {
				out.WriteString("\n")
			}
		}
		out.WriteString(line)
	}
	return strings.TrimSpace(out.String())
}

// pozdravuhaExtractor handles pozdravuha.ru. Toasts sit in paragraphs
// of class pozdravuha_ru_text with decoration elements to strip;
// sections are linked from the left menu block and paginated via a
// pages_next div.
type pozdravuhaExtractor struct{}

var pozdravuhaSkip = map[string]struct{}{
	"span": {}, "a": {}, "img": {}, "b": {}, "i": {},
}

func (pozdravuhaExtractor) Extract(doc *html.Node, base *url.URL) Page {
	var page Page

	for _, menu := range findAll(doc, "div", "menu-left-subrazd") {
		for _, a := range findAll(menu, "a", "") {
			if href := resolve(base, attr(a, "href")); href != "" {
				page.NextURLs = append(page.NextURLs, href)
			}
		}
	}
	for _, next := range findAll(doc, "div", "pages_next") {
		for _, a := range findAll(next, "a", "") {
			if href := resolve(base, attr(a, "href")); href != "" {
				page.NextURLs = append(page.NextURLs, href)
			}
		}
	}

	if header := pageHeader(doc); header != "" {
		page.Tags = append(page.Tags, header)
	}

	for _, p := range findAll(doc, "p", "pozdravuha_ru_text") {
		if text := textExcluding(p, pozdravuhaSkip); text != "" {
			page.Texts = append(page.Texts, text)
		}
	}

	return page
}

// textExcluding flattens text content, dropping entire subtrees whose
// element name is in skip.
func textExcluding(n *html.Node, skip map[string]struct{}) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if _, ok := skip[n.Data]; ok {
				return
			}
			if n.Data == "br" || n.Data == "p" {
				buf.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	var cleaned []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
