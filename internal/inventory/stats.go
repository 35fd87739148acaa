package inventory

import (
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity below which a product counts as low on stock.
const LowStockThreshold = 10

// Stock status labels.
const (
	StatusOutOfStock = "Out of Stock"
	StatusLowStock   = "Low Stock"
	StatusInStock    = "In Stock"
)

// Stats summarizes a product list.
type Stats struct {
	TotalItems     int64
	TotalValue     decimal.Decimal
	LowStock       int
	UniqueProducts int
}

// ComputeStats sums units and value over rows and counts low stock entries.
func ComputeStats(rows []product.Product) Stats {
	s := Stats{TotalValue: decimal.Zero, UniqueProducts: len(rows)}
	for _, p := range rows {
		s.TotalItems += p.Quantity
		s.TotalValue = s.TotalValue.Add(p.Value())
		if p.Quantity < LowStockThreshold {
			s.LowStock++
		}
	}
	return s
}

// StockStatus labels a quantity.
func StockStatus(quantity int64) string {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity < LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}
