package models

import "github.com/shopspring/decimal"

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	ImagePath string // relative to MEDIA_URL, e.g. "products/rose.jpg"; empty if no image
}
