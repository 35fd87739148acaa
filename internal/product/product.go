// Package product defines the product record exchanged with the remote store
// and the helpers that turn loosely shaped store rows into it.
package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names used by the remote store.
const (
	ColumnID        = "product_id"
	ColumnName      = "product_name"
	ColumnQuantity  = "quantity"
	ColumnCost      = "cost"
	ColumnActive    = "isActive"
	ColumnCreatedAt = "created_at"

	// ColumnPrice and ColumnUnitPrice are legacy spellings of the cost column.
	ColumnPrice     = "price"
	ColumnUnitPrice = "unit_price"
)

// MinQuantity is the smallest quantity ever sent to the store on create or update.
const MinQuantity int64 = 1

// Product is a single inventory row.
type Product struct {
	ID        string          `json:"product_id"`
	Name      string          `json:"product_name"`
	Quantity  int64           `json:"quantity"`
	Cost      decimal.Decimal `json:"cost"`
	IsActive  bool            `json:"isActive"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// Value returns quantity multiplied by unit cost.
func (p Product) Value() decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(p.Quantity))
}

func (p Product) String() string {
	state := "active"
	if !p.IsActive {
		state = "inactive"
	}
	return fmt.Sprintf("%s (qty=%d, cost=%s, %s)", p.Name, p.Quantity, p.Cost.StringFixed(2), state)
}

// Visibility selects which rows a list query returns.
type Visibility string

const (
	VisibilityActive   Visibility = "active"
	VisibilityInactive Visibility = "inactive"
	VisibilityAll      Visibility = "all"
)

var ErrInvalidVisibility = errors.New("invalid visibility mode")

// ParseVisibility converts user input into a Visibility. Empty input yields VisibilityActive.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityActive, nil
	case VisibilityActive, VisibilityInactive, VisibilityAll:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, s)
	}
}

// Includes reports whether a row with the given normalized active flag belongs to v.
func (v Visibility) Includes(active bool) bool {
	switch v {
	case VisibilityInactive:
		return !active
	case VisibilityAll:
		return true
	default:
		return active
	}
}
