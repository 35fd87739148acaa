// Package importer turns uploaded CSV and Excel files into an editable batch of
// product rows and commits the batch to the store in one request.
package importer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/abgdnv/smartstock/internal/product"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRowIndex is returned by the Set methods for an index outside the batch.
var ErrRowIndex = errors.New("row index out of range")

// InvalidRowsError reports how many staged rows failed validation.
type InvalidRowsError struct {
	Count int
}

func (e *InvalidRowsError) Error() string {
	return fmt.Sprintf("please fix %d invalid rows: all products must have a name, quantity >= 1, and cost >= 1", e.Count)
}

// Row is one staged product.
type Row struct {
	ID       string
	Name     string          `validate:"required"`
	Quantity int64           `validate:"min=1"`
	Cost     decimal.Decimal `validate:"gte=1"`
}

// Upserter writes a batch of products in one request.
type Upserter interface {
	BulkUpsert(ctx context.Context, products []product.Product) error
}

// Batch is the staging list of an import. It is not safe for concurrent use.
type Batch struct {
	rows     []Row
	validate *validator.Validate
}

// NewBatch stages rows.
func NewBatch(rows ...Row) *Batch {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return &Batch{rows: append([]Row(nil), rows...), validate: v}
}

// Rows returns a copy of the staged rows.
func (b *Batch) Rows() []Row {
	return append([]Row(nil), b.rows...)
}

// Len returns the number of staged rows.
func (b *Batch) Len() int { return len(b.rows) }

// SetName replaces the name of row i.
func (b *Batch) SetName(i int, name string) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.rows[i].Name = strings.TrimSpace(name)
	return nil
}

// SetQuantity replaces the quantity of row i.
func (b *Batch) SetQuantity(i int, quantity int64) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.rows[i].Quantity = quantity
	return nil
}

// SetCost replaces the cost of row i.
func (b *Batch) SetCost(i int, cost decimal.Decimal) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.rows[i].Cost = cost
	return nil
}

// Clear empties the batch.
func (b *Batch) Clear() { b.rows = nil }

func (b *Batch) check(i int) error {
	if i < 0 || i >= len(b.rows) {
		return fmt.Errorf("%w: %d (have %d rows)", ErrRowIndex, i, len(b.rows))
	}
	return nil
}

// Validate checks every row and reports the number of invalid ones.
func (b *Batch) Validate() error {
	invalid := 0
	for _, r := range b.rows {
		if err := b.validate.Struct(r); err != nil {
			invalid++
		}
	}
	if invalid > 0 {
		return &InvalidRowsError{Count: invalid}
	}
	return nil
}

// Commit validates the batch, gives every row without one an identifier and
// sends all rows as active products in a single upsert. The batch is cleared
// on success and left untouched otherwise.
func (b *Batch) Commit(ctx context.Context, u Upserter) error {
	if err := b.Validate(); err != nil {
		return err
	}
	products := make([]product.Product, 0, len(b.rows))
	for i := range b.rows {
		if b.rows[i].ID == "" {
			b.rows[i].ID = uuid.NewString()
		}
		r := b.rows[i]
		products = append(products, product.Product{
			ID:       r.ID,
			Name:     r.Name,
			Quantity: r.Quantity,
			Cost:     r.Cost,
			IsActive: true,
		})
	}
	if err := u.BulkUpsert(ctx, products); err != nil {
		return err
	}
	b.Clear()
	return nil
}
