package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// PriceHistoryRepository reads the append-only observation log.
type PriceHistoryRepository struct {
	db *sqlx.DB
}

// NewPriceHistoryRepository creates a new PriceHistoryRepository.
func NewPriceHistoryRepository(db *sqlx.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// GetTrend returns the full price series for an order_code in time order.
func (r *PriceHistoryRepository) GetTrend(orderCode string) ([]models.PriceHistoryEntry, error) {
	const q = `SELECT id, order_code, price, scraped_at FROM price_history
        WHERE order_code = $1 ORDER BY scraped_at ASC, id ASC`
	var entries []models.PriceHistoryEntry
	if err := r.db.Select(&entries, q, orderCode); err != nil {
		return nil, err
	}
	return entries, nil
}
