package crawl

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListingURL = "https://www.example.com/ja-jp/shop/laptops/scr/laptops"

// listingHTML is a listing page with three well-formed articles.
const listingHTML = `<!DOCTYPE html>
<html>
<body>
  <span class="dds__pagination__page-range-total">3</span>
  <article class="variant-stack ps-stack" id="variant-1">
    <h3><a href="/ja-jp/shop/laptops/spd/inspiron-14-5440/ins5440-a1">Inspiron 14 ノートパソコン</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>5440</span></div>
    <span class="ps-variant-price-amount">¥89,800</span>
  </article>
  <article class="variant-stack ps-stack" id="variant-2">
    <h3><a href="/ja-jp/shop/laptops/spd/xps-13-9340/xps9340-b2">XPS 13</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>9340</span></div>
    <span class="ps-variant-price-amount">¥198,000</span>
  </article>
  <article class="variant-stack ps-stack" id="variant-3">
    <h3><a href="https://www.example.com/ja-jp/shop/laptops/spd/latitude-3550/lat3550-c3">Latitude 3550</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>3550</span></div>
    <span class="ps-variant-price-amount">¥112,345</span>
  </article>
</body>
</html>`

// partialListingHTML mixes well-formed articles with malformed ones: one
// without a price node, one whose price has no digits, and one without a
// detail link.
const partialListingHTML = `<!DOCTYPE html>
<html>
<body>
  <article class="variant-stack ps-stack" id="ok-1">
    <h3><a href="/spd/inspiron-14-5440/ins5440-a1">Inspiron 14</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>5440</span></div>
    <span class="ps-variant-price-amount">¥89,800</span>
  </article>
  <article class="variant-stack ps-stack" id="no-price">
    <h3><a href="/spd/xps-13-9340/xps9340-b2">XPS 13</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>9340</span></div>
  </article>
  <article class="variant-stack ps-stack" id="blank-price">
    <h3><a href="/spd/latitude-3550/lat3550-c3">Latitude 3550</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>3550</span></div>
    <span class="ps-variant-price-amount">お問い合わせ</span>
  </article>
  <article class="variant-stack ps-stack" id="no-link">
    <h3>Vostro 3530</h3>
    <span class="ps-variant-price-amount">¥75,000</span>
  </article>
  <article class="variant-stack ps-stack" id="ok-2">
    <h3><a href="/spd/vostro-3530/vos3530-d4">Vostro 3530</a></h3>
    <div class="ps-model-number"><span>モデル番号:</span><span>3530</span></div>
    <span class="ps-variant-price-amount">¥75,000</span>
  </article>
</body>
</html>`

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractWellFormedArticles(t *testing.T) {
	e := NewExtractor()

	items := e.Extract(testListingURL, parseDoc(t, listingHTML))
	require.Len(t, items, 3)

	assert.Equal(t, "ins5440-a1", items[0].OrderCode)
	assert.Equal(t, "Inspiron 14 ノートパソコン", items[0].Name)
	assert.Equal(t, "5440", items[0].Model)
	assert.Equal(t, int64(89800), items[0].Price)
	assert.Equal(t, "https://www.example.com/ja-jp/shop/laptops/spd/inspiron-14-5440/ins5440-a1", items[0].URL)

	assert.Equal(t, "xps9340-b2", items[1].OrderCode)
	assert.Equal(t, int64(198000), items[1].Price)

	// Absolute detail links stay absolute.
	assert.Equal(t, "lat3550-c3", items[2].OrderCode)
	assert.Equal(t, "https://www.example.com/ja-jp/shop/laptops/spd/latitude-3550/lat3550-c3", items[2].URL)
}

func TestExtractDropsMalformedArticlesOnly(t *testing.T) {
	e := NewExtractor()

	items := e.Extract(testListingURL, parseDoc(t, partialListingHTML))

	// Malformed articles are dropped without reducing the well-formed count.
	require.Len(t, items, 2)
	assert.Equal(t, "ins5440-a1", items[0].OrderCode)
	assert.Equal(t, "vos3530-d4", items[1].OrderCode)
}

func TestExtractEmptyPage(t *testing.T) {
	e := NewExtractor()

	items := e.Extract(testListingURL, parseDoc(t, `<html><body><div>no articles here</div></body></html>`))

	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "yen with commas", raw: "¥89,800", want: 89800},
		{name: "surrounding text", raw: " 価格 79,800円 ", want: 79800},
		{name: "plain digits", raw: "1234", want: 1234},
		{name: "zero", raw: "¥0", want: 0},
		{name: "no digits", raw: "お問い合わせ", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePrice(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderCodeFromHref(t *testing.T) {
	code, err := orderCodeFromHref("/ja-jp/shop/laptops/spd/inspiron-14-5440/ins5440-a1")
	require.NoError(t, err)
	assert.Equal(t, "ins5440-a1", code)

	code, err = orderCodeFromHref("https://www.example.com/spd/xps-13/xps9340-b2/")
	require.NoError(t, err)
	assert.Equal(t, "xps9340-b2", code)

	_, err = orderCodeFromHref("https://www.example.com")
	assert.Error(t, err)
}
