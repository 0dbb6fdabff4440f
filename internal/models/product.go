package models

import "time"

// Product is the current-state row for one catalog item. order_code is the
// stable identity derived from the product's detail-page URL; every crawl
// overwrites all fields except NotificationsEnabled, which is only ever
// changed through the notification-settings API.
type Product struct {
	OrderCode            string    `db:"order_code" json:"orderCode"`
	Name                 string    `db:"name" json:"name"`
	Model                string    `db:"model" json:"model"`
	URL                  string    `db:"url" json:"url"`
	Price                int64     `db:"price" json:"price"`
	ScrapedAt            time.Time `db:"scraped_at" json:"scrapedAt"`
	NotificationsEnabled bool      `db:"notifications_enabled" json:"notificationsEnabled"`
}

// PriceHistoryEntry is one immutable observation in the append-only log.
// Current state in Product is a projection of this log, never the reverse.
type PriceHistoryEntry struct {
	ID        int64     `db:"id" json:"-"`
	OrderCode string    `db:"order_code" json:"orderCode"`
	Price     int64     `db:"price" json:"price"`
	ScrapedAt time.Time `db:"scraped_at" json:"date"`
}
