package product

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Fields is a partial product record used for writes.
// Zero-valued ID and Name and nil pointers are left out of the payload.
type Fields struct {
	ID       string
	Name     string
	Quantity *int64
	Cost     *decimal.Decimal
	IsActive *bool

	// Price and UnitPrice target legacy schemas that name the cost column differently.
	Price     *decimal.Decimal
	UnitPrice *decimal.Decimal
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Decimal returns a pointer to v.
func Decimal(v decimal.Decimal) *decimal.Decimal { return &v }

// ClampQuantity raises a present quantity below MinQuantity to MinQuantity.
// When required is true a missing quantity is set to MinQuantity as well.
func (f Fields) ClampQuantity(required bool) Fields {
	switch {
	case f.Quantity == nil && required:
		f.Quantity = Int64(MinQuantity)
	case f.Quantity != nil && *f.Quantity < MinQuantity:
		f.Quantity = Int64(MinQuantity)
	}
	return f
}

// Payload renders the set members keyed by store column name.
// Decimals are emitted as JSON numbers.
func (f Fields) Payload() map[string]any {
	p := make(map[string]any, 7)
	if f.ID != "" {
		p[ColumnID] = f.ID
	}
	if f.Name != "" {
		p[ColumnName] = f.Name
	}
	if f.Quantity != nil {
		p[ColumnQuantity] = *f.Quantity
	}
	if f.Cost != nil {
		p[ColumnCost] = number(*f.Cost)
	}
	if f.IsActive != nil {
		p[ColumnActive] = *f.IsActive
	}
	if f.Price != nil {
		p[ColumnPrice] = number(*f.Price)
	}
	if f.UnitPrice != nil {
		p[ColumnUnitPrice] = number(*f.UnitPrice)
	}
	return p
}

// Row renders a complete product for batch writes.
func (p Product) Row() map[string]any {
	return map[string]any{
		ColumnID:       p.ID,
		ColumnName:     p.Name,
		ColumnQuantity: p.Quantity,
		ColumnCost:     number(p.Cost),
		ColumnActive:   p.IsActive,
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
