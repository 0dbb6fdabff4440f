package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// ProductRepository handles read/settings access for products. Crawl-time
// writes go through ObservationRepository, which owns the transactional
// upsert+history unit.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetAll returns all products ordered by display name.
func (r *ProductRepository) GetAll() ([]models.Product, error) {
	const q = `SELECT * FROM products ORDER BY name ASC, model ASC`
	var products []models.Product
	if err := r.db.Select(&products, q); err != nil {
		return nil, err
	}
	return products, nil
}

// GetNames returns the distinct product display names, sorted.
// Names that differ only in whitespace are distinct rows here as stored.
func (r *ProductRepository) GetNames() ([]string, error) {
	const q = `SELECT DISTINCT name FROM products ORDER BY name ASC`
	var names []string
	if err := r.db.Select(&names, q); err != nil {
		return nil, err
	}
	return names, nil
}

// GetModelsByName returns the model identifiers observed for a display name.
func (r *ProductRepository) GetModelsByName(name string) ([]string, error) {
	const q = `SELECT model FROM products WHERE name = $1 ORDER BY model ASC`
	var ms []string
	if err := r.db.Select(&ms, q, name); err != nil {
		return nil, err
	}
	return ms, nil
}

// GetByOrderCode returns a single product by order_code.
func (r *ProductRepository) GetByOrderCode(orderCode string) (*models.Product, error) {
	const q = `SELECT * FROM products WHERE order_code = $1 LIMIT 1`
	var p models.Product
	if err := r.db.Get(&p, q, orderCode); err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveOrderCode finds the order_code for a (name, model) pair.
func (r *ProductRepository) ResolveOrderCode(name, model string) (string, error) {
	const q = `SELECT order_code FROM products WHERE name = $1 AND model = $2 LIMIT 1`
	var code string
	if err := r.db.Get(&code, q, name, model); err != nil {
		return "", err
	}
	return code, nil
}

// NotificationSetting is one row of the order_code → enabled map.
type NotificationSetting struct {
	OrderCode string `db:"order_code" json:"orderCode"`
	Enabled   bool   `db:"notifications_enabled" json:"enabled"`
}

// GetNotificationSettings returns the notification preference for every product.
func (r *ProductRepository) GetNotificationSettings() ([]NotificationSetting, error) {
	const q = `SELECT order_code, notifications_enabled FROM products ORDER BY order_code ASC`
	var settings []NotificationSetting
	if err := r.db.Select(&settings, q); err != nil {
		return nil, err
	}
	return settings, nil
}

// SetNotificationEnabled toggles the notification preference for one product.
// Returns sql.ErrNoRows when the order_code is unknown.
func (r *ProductRepository) SetNotificationEnabled(orderCode string, enabled bool) error {
	const q = `UPDATE products SET notifications_enabled = $2 WHERE order_code = $1`
	res, err := r.db.Exec(q, orderCode, enabled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
