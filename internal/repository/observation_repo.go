package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// ObservationRepository persists one crawl observation as an atomic unit:
// the product upsert and the history append commit together or not at all.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository creates a new ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// PersistObservation writes the current product state and appends a history
// row inside a single transaction, and returns the prior price and the
// preserved notification preference as read within that transaction.
//
// The product upsert deliberately leaves notifications_enabled alone on
// conflict: the preference belongs to the user, not to the crawl. The prior
// row is still read first (FOR UPDATE) because change detection needs the
// pre-overwrite price, and because holding the row lock keeps two workers
// observing the same order_code from interleaving their read and write.
func (r *ObservationRepository) PersistObservation(ctx context.Context, item models.ExtractedItem, observedAt time.Time) (models.Observation, error) {
	var obs models.Observation

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return obs, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	const prior = `SELECT price, notifications_enabled FROM products
        WHERE order_code = $1 FOR UPDATE`
	row := tx.QueryRowxContext(ctx, prior, item.OrderCode)
	if err := row.Scan(&obs.PriorPrice, &obs.NotificationsEnabled); err != nil {
		if err != sql.ErrNoRows {
			return obs, fmt.Errorf("read prior price: %w", err)
		}
		// First observation: prior price stays at the 0 sentinel and the
		// preference at its default.
	} else {
		obs.PriorFound = true
	}

	const upsert = `
        INSERT INTO products (order_code, name, model, url, price, scraped_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (order_code) DO UPDATE SET
            name = EXCLUDED.name,
            model = EXCLUDED.model,
            url = EXCLUDED.url,
            price = EXCLUDED.price,
            scraped_at = EXCLUDED.scraped_at`
	if _, err := tx.ExecContext(ctx, upsert,
		item.OrderCode, item.Name, item.Model, item.URL, item.Price, observedAt,
	); err != nil {
		return obs, fmt.Errorf("upsert product: %w", err)
	}

	const appendHistory = `
        INSERT INTO price_history (order_code, price, scraped_at)
        VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, appendHistory, item.OrderCode, item.Price, observedAt); err != nil {
		return obs, fmt.Errorf("append price history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return obs, fmt.Errorf("commit: %w", err)
	}
	return obs, nil
}
