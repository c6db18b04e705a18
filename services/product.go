package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"teleshop/db"
	"teleshop/models"
)

// ListProducts returns the catalog ordered by name.
func ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, price::text, image FROM products
		ORDER BY name, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p     models.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.ImagePath); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %d price %q: %w", p.ID, price, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
