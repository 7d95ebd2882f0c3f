// internal/adaptive/context.go
package adaptive

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wpitallo/crawlee/internal/browser"
	"github.com/wpitallo/crawlee/internal/fetch"
	urlutil "github.com/wpitallo/crawlee/internal/utils/url"
	"github.com/wpitallo/crawlee/pkg/models"
)

// DefaultLinkSelector matches every hyperlink on the page.
const DefaultLinkSelector = "a[href]"

// Handler is the user-supplied extraction routine. The same handler runs on
// both the static and the rendered path; it should only rely on what Context
// exposes so either path can serve it.
type Handler func(c *Context) error

// Context is what a Handler sees for one execution attempt. Exactly one of
// Response and Page is set: Response on the static path, Page on the
// rendered path. Document is always set and reflects the markup of
// whichever path produced it.
type Context struct {
	// Ctx carries the attempt's deadline and cancellation.
	Ctx context.Context

	// Request is the crawl request being processed.
	Request *models.Request

	document     *goquery.Document
	response     *fetch.Response
	page         *browser.Page
	recorder     *Recorder
	linkSelector string
	baseURL      string
}

// Document returns the parsed page markup.
func (c *Context) Document() *goquery.Document {
	return c.document
}

// Response returns the plain HTTP response, or nil on the rendered path.
func (c *Context) Response() *fetch.Response {
	return c.response
}

// Page returns the live browser page, or nil on the static path.
func (c *Context) Page() *browser.Page {
	return c.page
}

// PushData emits one or more extracted records.
func (c *Context) PushData(records ...models.Record) error {
	return c.recorder.Push(c.Ctx, records...)
}

// EnqueueLinks extracts anchors matching selector from the document, resolves
// them against the page URL and enqueues them. An empty selector means every
// hyperlink.
func (c *Context) EnqueueLinks(selector string) ([]models.AddedRequest, error) {
	if selector == "" {
		selector = c.linkSelector
	}
	if selector == "" {
		selector = DefaultLinkSelector
	}
	links := extractLinks(c.document, c.baseURL, selector)
	if len(links) == 0 {
		return []models.AddedRequest{}, nil
	}
	return c.recorder.Add(c.Ctx, links...)
}

// AddRequests enqueues explicit URLs, bypassing document link extraction.
func (c *Context) AddRequests(urls ...string) ([]models.AddedRequest, error) {
	return c.recorder.Add(c.Ctx, urls...)
}

// extractLinks pulls crawlable hrefs out of the document. Fragments, mail
// and script pseudo-links are skipped; relative hrefs resolve against base.
func extractLinks(doc *goquery.Document, base, selector string) []string {
	if doc == nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		resolved := urlutil.ResolveURL(base, href)
		if err := urlutil.ValidateURL(resolved); err != nil {
			return
		}
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links
}
