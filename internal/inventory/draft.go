package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/abgdnv/smartstock/internal/product"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Draft is the user input of the product form.
type Draft struct {
	Name     string          `validate:"required"`
	Quantity *int64          `validate:"required,min=1"`
	Cost     decimal.Decimal `validate:"gte=0"`
}

// DraftFrom fills a draft with the values of p.
func DraftFrom(p product.Product) Draft {
	return Draft{Name: p.Name, Quantity: product.Int64(p.Quantity), Cost: p.Cost}
}

// FormState describes the product form. Editing is the name of the product
// being edited and is empty while creating.
type FormState struct {
	Open    bool
	Editing string
	Draft   Draft
}

// newValidator returns a validator that compares decimals by their float value.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (c *Controller) validateDraft(d Draft) error {
	d.Name = strings.TrimSpace(d.Name)
	err := c.validate.Struct(d)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, describe(fieldErr))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "gte":
		return field + " must not be negative"
	default:
		return field + " failed on rule: " + fe.Tag()
	}
}
