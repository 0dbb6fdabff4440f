package crawl

import (
	"context"
	"fmt"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startURL = "https://www.example.com/ja-jp/shop/laptops/scr/laptops"

// fakeRenderer serves canned HTML per URL and records the fetch order.
type fakeRenderer struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, pageURL string) (string, error) {
	f.calls = append(f.calls, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	html, ok := f.pages[pageURL]
	if !ok {
		return "", fmt.Errorf("fetch %s: no such page", pageURL)
	}
	return html, nil
}

func listingPage(totalPages string) string {
	header := ""
	if totalPages != "" {
		header = `<span class="dds__pagination__page-range-total">` + totalPages + `</span>`
	}
	return `<html><body>` + header + `</body></html>`
}

func TestWalkVisitsEveryPageOnceInOrder(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{
		startURL:             listingPage("3"),
		startURL + "?page=2": listingPage("3"),
		startURL + "?page=3": listingPage("3"),
	}}

	var visited []int
	state, err := NewPaginator(r).Walk(context.Background(), startURL, func(pageNo int, _ *goquery.Document) {
		visited = append(visited, pageNo)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, visited)
	assert.Equal(t, []string{startURL, startURL + "?page=2", startURL + "?page=3"}, r.calls)
	assert.Equal(t, 3, state.TotalPages)
	assert.Equal(t, 3, state.PagesFetched)
	assert.False(t, state.TotalPagesDefaulted)
}

func TestWalkDefaultsToSinglePageWhenIndicatorMissing(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{
		startURL: listingPage(""),
	}}

	var visited []int
	state, err := NewPaginator(r).Walk(context.Background(), startURL, func(pageNo int, _ *goquery.Document) {
		visited = append(visited, pageNo)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1}, visited)
	assert.Equal(t, 1, state.TotalPages)
	assert.Equal(t, 1, state.PagesFetched)
	assert.True(t, state.TotalPagesDefaulted)
}

func TestWalkDefaultsToSinglePageWhenIndicatorUnparsable(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{
		startURL: listingPage("たくさん"),
	}}

	state, err := NewPaginator(r).Walk(context.Background(), startURL, func(int, *goquery.Document) {})

	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalPages)
	assert.True(t, state.TotalPagesDefaulted)
	assert.Len(t, r.calls, 1)
}

func TestWalkStopsOnFetchFailureKeepingEarlierPages(t *testing.T) {
	r := &fakeRenderer{
		pages: map[string]string{
			startURL:             listingPage("5"),
			startURL + "?page=2": listingPage("5"),
		},
		errs: map[string]error{
			startURL + "?page=3": fmt.Errorf("fetch timed out"),
		},
	}

	var visited []int
	state, err := NewPaginator(r).Walk(context.Background(), startURL, func(pageNo int, _ *goquery.Document) {
		visited = append(visited, pageNo)
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, visited)
	assert.Equal(t, 2, state.PagesFetched)
	assert.Equal(t, 5, state.TotalPages)
	// The failed page is the last fetch attempted; nothing after it.
	assert.Equal(t, startURL+"?page=3", r.calls[len(r.calls)-1])
}

func TestWalkFailsFastWhenFirstPageUnreachable(t *testing.T) {
	r := &fakeRenderer{errs: map[string]error{
		startURL: fmt.Errorf("navigation error"),
	}}

	visits := 0
	state, err := NewPaginator(r).Walk(context.Background(), startURL, func(int, *goquery.Document) {
		visits++
	})

	require.Error(t, err)
	assert.Zero(t, visits)
	assert.Zero(t, state.PagesFetched)
}

func TestWalkHonorsCancellationAtLoopBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := &fakeRenderer{pages: map[string]string{
		startURL:             listingPage("4"),
		startURL + "?page=2": listingPage("4"),
	}}

	var visited []int
	state, err := NewPaginator(r).Walk(ctx, startURL, func(pageNo int, _ *goquery.Document) {
		visited = append(visited, pageNo)
		// Operator abort mid-run: no further fetches may be issued.
		cancel()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1}, visited)
	assert.Equal(t, 1, state.PagesFetched)
	assert.Len(t, r.calls, 1)
}
