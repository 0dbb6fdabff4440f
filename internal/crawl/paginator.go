package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// totalPagesSelector locates the page-count indicator on the first listing
// page. When it is missing or unparsable the run degrades to a single page;
// that fallback masks selector regressions, so the degradation is logged
// loudly and surfaced in the run summary via TotalPagesDefaulted.
const totalPagesSelector = "span.dds__pagination__page-range-total"

// Renderer is the external render boundary: fetch a URL, execute client-side
// rendering, return the final HTML. Any error is a failed page fetch.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// PageState is the cursor for one run's traversal. It is owned exclusively
// by the run that created it; 1 <= CurrentPage <= TotalPages holds
// throughout, and TotalPages is resolved exactly once from page 1.
type PageState struct {
	StartURL            string
	CurrentPage         int
	TotalPages          int
	TotalPagesDefaulted bool
	PagesFetched        int
}

// PageVisit receives each fetched page exactly once, in increasing order.
type PageVisit func(pageNo int, doc *goquery.Document)

// Paginator walks a paginated listing page by page.
type Paginator struct {
	renderer Renderer
}

// NewPaginator creates a Paginator over the given render boundary.
func NewPaginator(renderer Renderer) *Paginator {
	return &Paginator{renderer: renderer}
}

// Walk fetches pages 1..TotalPages strictly in order, exactly once each,
// invoking visit for every page. The first fetch failure stops the walk and
// is returned; pages already visited stand. Cancellation is honored at the
// loop boundary, before the next fetch is issued.
func (p *Paginator) Walk(ctx context.Context, startURL string, visit PageVisit) (PageState, error) {
	state := PageState{StartURL: startURL, CurrentPage: 1, TotalPages: 1}

	doc, err := p.fetchPage(ctx, startURL)
	if err != nil {
		return state, err
	}
	state.PagesFetched = 1
	state.TotalPages, state.TotalPagesDefaulted = resolveTotalPages(doc, startURL)
	visit(1, doc)

	for state.CurrentPage < state.TotalPages {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		next := state.CurrentPage + 1
		nextURL, err := pageURL(startURL, next)
		if err != nil {
			return state, err
		}
		doc, err := p.fetchPage(ctx, nextURL)
		if err != nil {
			return state, err
		}

		state.CurrentPage = next
		state.PagesFetched++
		visit(next, doc)
	}

	return state, nil
}

func (p *Paginator) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	html, err := p.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: parse html: %w", pageURL, err)
	}
	return doc, nil
}

// resolveTotalPages reads the page-count indicator from page 1. On absence
// or parse failure it defaults to 1 so a run with unreadable pagination
// metadata still completes page one instead of looping or crashing.
func resolveTotalPages(doc *goquery.Document, pageURL string) (total int, defaulted bool) {
	text := strings.TrimSpace(doc.Find(totalPagesSelector).First().Text())
	if text == "" {
		log.Warn().
			Str("selector", totalPagesSelector).
			Str("url", pageURL).
			Msg("page count indicator missing, defaulting to single page")
		return 1, true
	}

	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		log.Warn().
			Str("selector", totalPagesSelector).
			Str("url", pageURL).
			Str("text", text).
			Msg("page count unparsable, defaulting to single page")
		return 1, true
	}
	return n, false
}

// pageURL appends the page-number query parameter to the start URL.
// Page 1 is always fetched via the bare start URL.
func pageURL(startURL string, page int) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("bad start url %q: %w", startURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
