package page

import (
	"bytes"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
)

/*
Responsibilities

- Hold one fetched document's bytes and response metadata
- Parse HTML into a DOM lazily, once, on first access
- Become immutable once the engine emits it to subscribers

A Page never performs I/O of its own; it is built from the bytes a
fetcher already retrieved.
*/

// Page is one crawled document. It is mutable only until Freeze is
// called; the engine freezes a Page exactly once, right before handing
// it to subscribers, after which further mutation attempts are no-ops.
type Page struct {
	frozen atomic.Bool

	requestedURL url.URL
	finalURL     url.URL
	statusCode   int
	headers      map[string]string
	body         []byte
	fetchedAt    time.Time
	depth        int

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// New builds a Page from a fetch result. requestedURL is the URL that
// was enqueued; finalURL is where the response actually landed after any
// redirects.
func New(
	requestedURL url.URL,
	finalURL url.URL,
	statusCode int,
	headers map[string]string,
	body []byte,
	fetchedAt time.Time,
	depth int,
) *Page {
	return &Page{
		requestedURL: requestedURL,
		finalURL:     finalURL,
		statusCode:   statusCode,
		headers:      headers,
		body:         body,
		fetchedAt:    fetchedAt,
		depth:        depth,
	}
}

// Freeze seals the Page against further mutation. Safe to call more than
// once; only the first call has an effect.
func (p *Page) Freeze() {
	p.frozen.Store(true)
}

// IsFrozen reports whether Freeze has been called.
func (p *Page) IsFrozen() bool {
	return p.frozen.Load()
}

func (p *Page) RequestedURL() url.URL { return p.requestedURL }
func (p *Page) FinalURL() url.URL     { return p.finalURL }
func (p *Page) StatusCode() int       { return p.statusCode }
func (p *Page) Body() []byte          { return p.body }
func (p *Page) FetchedAt() time.Time  { return p.fetchedAt }
func (p *Page) Depth() int            { return p.depth }

// Header returns a response header value, matched case-insensitively per
// net/http.Header storage convention. The caller-visible map already
// preserves only the first value per key (see fetcher.ResponseMeta).
func (p *Page) Header(key string) (string, bool) {
	for k, v := range p.headers {
		if httpHeaderEqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func httpHeaderEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Document lazily parses the page body into a goquery document. Parsing
// happens at most once per Page regardless of how many callers request
// the document concurrently.
func (p *Page) Document() (*goquery.Document, error) {
	p.docOnce.Do(func() {
		p.doc, p.docErr = goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	})
	return p.doc, p.docErr
}
