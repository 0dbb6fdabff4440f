package crawl

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// fakeStore mirrors the transactional store semantics in memory: current
// state is overwritten per order code, history only ever grows, and the
// notification preference survives upserts.
type fakeStore struct {
	mu        sync.Mutex
	products  map[string]models.Product
	history   map[string][]int64
	failCodes map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  make(map[string]models.Product),
		history:   make(map[string][]int64),
		failCodes: make(map[string]bool),
	}
}

func (s *fakeStore) seed(orderCode string, price int64, notificationsEnabled bool) {
	s.products[orderCode] = models.Product{
		OrderCode:            orderCode,
		Price:                price,
		NotificationsEnabled: notificationsEnabled,
	}
	s.history[orderCode] = append(s.history[orderCode], price)
}

func (s *fakeStore) PersistObservation(_ context.Context, item models.ExtractedItem, observedAt time.Time) (models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCodes[item.OrderCode] {
		return models.Observation{}, fmt.Errorf("commit failed")
	}

	var obs models.Observation
	prior, found := s.products[item.OrderCode]
	if found {
		obs.PriorFound = true
		obs.PriorPrice = prior.Price
		obs.NotificationsEnabled = prior.NotificationsEnabled
	}

	s.products[item.OrderCode] = models.Product{
		OrderCode:            item.OrderCode,
		Name:                 item.Name,
		Model:                item.Model,
		URL:                  item.URL,
		Price:                item.Price,
		ScrapedAt:            observedAt,
		NotificationsEnabled: prior.NotificationsEnabled,
	}
	s.history[item.OrderCode] = append(s.history[item.OrderCode], item.Price)
	return obs, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.PriceChangeEvent
	err    error
}

func (n *fakeNotifier) NotifyPriceChange(_ context.Context, ev models.PriceChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func item(orderCode string, price int64) models.ExtractedItem {
	return models.ExtractedItem{
		OrderCode: orderCode,
		Name:      "Inspiron 14",
		Model:     "5440",
		URL:       "https://www.example.com/spd/inspiron-14/" + orderCode,
		Price:     price,
	}
}

func TestFirstObservationNeverNotifies(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 89800)}, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 1}, outcome)
	assert.Empty(t, notifier.events)
	assert.Equal(t, int64(89800), store.products["X123"].Price)
	assert.Equal(t, []int64{89800}, store.history["X123"])
}

func TestPriceChangeNotifiesWhenEnabled(t *testing.T) {
	store := newFakeStore()
	store.seed("X123", 89800, true)
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 79800)}, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 1, Notified: 1}, outcome)
	require.Len(t, notifier.events, 1)
	ev := notifier.events[0]
	assert.Equal(t, "X123", ev.OrderCode)
	assert.Equal(t, int64(89800), ev.OldPrice)
	assert.Equal(t, int64(79800), ev.NewPrice)

	// History is append-only, in time order; current state is the overwrite.
	assert.Equal(t, []int64{89800, 79800}, store.history["X123"])
	assert.Equal(t, int64(79800), store.products["X123"].Price)
	assert.True(t, store.products["X123"].NotificationsEnabled, "preference must survive the upsert")
}

func TestUnchangedPriceDoesNotNotify(t *testing.T) {
	store := newFakeStore()
	store.seed("X123", 89800, true)
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 89800)}, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 1}, outcome)
	assert.Empty(t, notifier.events)
	assert.Len(t, store.history["X123"], 2)
}

func TestPriceChangeWithNotificationsDisabledDoesNotNotify(t *testing.T) {
	store := newFakeStore()
	store.seed("X123", 89800, false)
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 79800)}, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 1}, outcome)
	assert.Empty(t, notifier.events)
}

func TestZeroPriorPriceIsNotTheSentinel(t *testing.T) {
	store := newFakeStore()
	store.seed("X123", 0, true)
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	// An actual stored price of 0 is a real prior price: moving to 79800 is
	// a change and must notify.
	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 79800)}, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 1, Notified: 1}, outcome)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, int64(0), notifier.events[0].OldPrice)
}

func TestOneFailingItemDoesNotBlockOthers(t *testing.T) {
	store := newFakeStore()
	store.failCodes["BAD1"] = true
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 3)

	items := []models.ExtractedItem{
		item("OK1", 1000),
		item("BAD1", 2000),
		item("OK2", 3000),
	}
	outcome := p.ProcessPage(context.Background(), items, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 2, Dropped: 1}, outcome)
	assert.Contains(t, store.products, "OK1")
	assert.Contains(t, store.products, "OK2")
	assert.NotContains(t, store.products, "BAD1")
	assert.Empty(t, store.history["BAD1"])
}

func TestNotificationFailureDoesNotAffectPersistedState(t *testing.T) {
	store := newFakeStore()
	store.seed("X123", 89800, true)
	notifier := &fakeNotifier{err: fmt.Errorf("messaging api unavailable")}
	p := NewPipeline(store, notifier, 1)

	outcome := p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 79800)}, time.Now())

	// The write stands; only the notification is lost.
	assert.Equal(t, PageOutcome{Persisted: 1}, outcome)
	assert.Equal(t, int64(79800), store.products["X123"].Price)
	assert.Equal(t, []int64{89800, 79800}, store.history["X123"])
}

func TestRepeatedObservationKeepsOneCurrentRowAndFullHistory(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 2)

	p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 89800)}, time.Now())
	p.ProcessPage(context.Background(), []models.ExtractedItem{item("X123", 79800)}, time.Now())

	assert.Len(t, store.products, 1)
	assert.Equal(t, []int64{89800, 79800}, store.history["X123"])
}

func TestManyItemsAcrossWorkers(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	p := NewPipeline(store, notifier, 4)

	var items []models.ExtractedItem
	for i := 0; i < 50; i++ {
		items = append(items, item(fmt.Sprintf("CODE-%02d", i), int64(1000+i)))
	}
	outcome := p.ProcessPage(context.Background(), items, time.Now())

	assert.Equal(t, PageOutcome{Persisted: 50}, outcome)
	assert.Len(t, store.products, 50)
}
