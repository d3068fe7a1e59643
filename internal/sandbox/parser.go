package sandbox

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/urlsentry/urlsentry/internal/model"
)

// resourceRef is one subresource reference extracted from the page.
type resourceRef struct {
	url          string
	resourceType model.ResourceType
}

// pageParser extracts subresource references from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type pageParser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative subresource references.
	baseURL *url.URL
}

func newPageParser(pageURL string) (*pageParser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &pageParser{baseURL: u}, nil
}

// apiCallPattern finds absolute URLs passed to fetch() or XMLHttpRequest
// open() calls in inline script text. Static extraction cannot evaluate
// string concatenation, so only literal absolute URLs are captured.
var apiCallPattern = regexp.MustCompile(`(?:fetch\s*\(\s*|\.open\s*\(\s*["'][A-Z]+["']\s*,\s*)["'](https?://[^"']+)["']`)

// parse walks the document and returns every subresource reference in
// document order. Duplicate URLs are kept; the aggregator counts volume.
func (p *pageParser) parse(content io.Reader) ([]resourceRef, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	refs := make([]resourceRef, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			refs = append(refs, p.elementRefs(n)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return refs, nil
}

// elementRefs extracts the subresource references a single element causes
// the browser to load.
func (p *pageParser) elementRefs(n *html.Node) []resourceRef {
	switch n.Data {
	case "script":
		if src := getAttr(n, "src"); src != "" {
			return p.ref(src, model.ResourceScript)
		}
		// Inline script: mine it for fetch/XHR endpoints.
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return p.inlineAPICalls(n.FirstChild.Data)
		}

	case "link":
		href := getAttr(n, "href")
		if href == "" {
			return nil
		}
		switch getAttr(n, "rel") {
		case "stylesheet":
			return p.ref(href, model.ResourceStylesheet)
		case "icon", "shortcut icon", "apple-touch-icon":
			return p.ref(href, model.ResourceImage)
		case "preload", "prefetch", "preconnect", "dns-prefetch":
			return p.ref(href, model.ResourceOther)
		}

	case "img", "source", "video", "audio":
		if src := getAttr(n, "src"); src != "" {
			return p.ref(src, model.ResourceImage)
		}

	case "iframe", "frame", "embed":
		if src := getAttr(n, "src"); src != "" {
			return p.ref(src, model.ResourceFrame)
		}

	case "object":
		if data := getAttr(n, "data"); data != "" {
			return p.ref(data, model.ResourceFrame)
		}

	case "form":
		// Form actions are not loaded at page load time, but a form
		// posting off-origin is still traffic the page initiates.
		if action := getAttr(n, "action"); action != "" {
			return p.ref(action, model.ResourceOther)
		}
	}

	return nil
}

// inlineAPICalls extracts fetch/XHR endpoints from inline script text.
func (p *pageParser) inlineAPICalls(script string) []resourceRef {
	matches := apiCallPattern.FindAllStringSubmatch(script, -1)
	refs := make([]resourceRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, p.ref(m[1], model.ResourceFetch)...)
	}
	return refs
}

// ref resolves a raw reference against the base URL and wraps it. Schemes
// that never hit the network (data:, javascript:, blob:) are dropped.
func (p *pageParser) ref(raw string, resourceType model.ResourceType) []resourceRef {
	resolved := p.resolveURL(raw)
	if resolved == "" {
		return nil
	}
	return []resourceRef{{url: resolved, resourceType: resourceType}}
}

// resolveURL resolves a relative reference against the base URL.
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows third-party detection against the origin
//  3. Reduces ambiguity in results
func (p *pageParser) resolveURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return ""
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "blob:", "about:"} {
		if strings.HasPrefix(raw, prefix) {
			return ""
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
