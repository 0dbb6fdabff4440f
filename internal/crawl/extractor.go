package crawl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// Selectors for the listing markup. One <article> per product variant; the
// detail link under <h3> carries both the display name and the stable slug
// the order code is derived from.
const (
	articleSelector    = "article.variant-stack.ps-stack"
	detailLinkSelector = "h3 a"
	modelSelector      = "div.ps-model-number span"
	priceSelector      = "span.ps-variant-price-amount"
)

// Extractor reads structured product records out of one rendered listing
// page. Extraction is best-effort per article: a malformed article is logged
// and dropped without affecting the rest of the page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the items for every well-formed article on the page.
// A page where the article selector matches nothing yields an empty, non-nil
// slice; callers decide whether that is worth reporting.
func (e *Extractor) Extract(pageURL string, doc *goquery.Document) []models.ExtractedItem {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	items := make([]models.ExtractedItem, 0)
	doc.Find(articleSelector).Each(func(_ int, sel *goquery.Selection) {
		item, err := extractArticle(sel, base)
		if err != nil {
			id := sel.AttrOr("id", "unknown")
			log.Warn().Str("article_id", id).Err(err).Msg("dropping malformed article")
			return
		}
		items = append(items, item)
	})
	return items
}

// extractArticle reads one article element. OrderCode and Price are
// mandatory; Name and Model come back empty when their nodes are missing.
func extractArticle(sel *goquery.Selection, base *url.URL) (models.ExtractedItem, error) {
	var item models.ExtractedItem

	link := sel.Find(detailLinkSelector).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return item, fmt.Errorf("detail link missing")
	}

	code, err := orderCodeFromHref(href)
	if err != nil {
		return item, err
	}
	item.OrderCode = code
	item.URL = resolveURL(base, href)
	item.Name = strings.TrimSpace(link.Text())
	item.Model = strings.TrimSpace(sel.Find(modelSelector).Eq(1).Text())

	priceText := sel.Find(priceSelector).First().Text()
	price, err := parsePrice(priceText)
	if err != nil {
		return item, err
	}
	item.Price = price

	return item, nil
}

// orderCodeFromHref derives the stable order code from the detail-page href:
// the last non-empty path segment of the URL.
func orderCodeFromHref(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("unparsable detail link %q: %w", href, err)
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", fmt.Errorf("detail link %q has no path", href)
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1], nil
}

// parsePrice strips currency formatting (yen sign, commas, surrounding text)
// and parses the remaining digits as the price in the smallest currency unit.
func parsePrice(raw string) (int64, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("no parsable price in %q", strings.TrimSpace(raw))
	}
	price, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q out of range", strings.TrimSpace(raw))
	}
	return price, nil
}

// resolveURL absolutizes href against the listing page URL when possible.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return strings.TrimSpace(href)
	}
	return base.ResolveReference(ref).String()
}
