package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// legacyCostColumns are consulted in order when a row carries no cost.
var legacyCostColumns = []string{ColumnPrice, ColumnUnitPrice}

// RowProblem is a column of a store row that could not be read and was left at zero.
type RowProblem struct {
	Row    int
	Name   string
	Column string
	Err    error
}

func (p RowProblem) String() string {
	return fmt.Sprintf("row %d (%s) %s: %v", p.Row, p.Name, p.Column, p.Err)
}

// DecodeRows decodes a JSON array of store rows and normalizes each of them.
// Only a body that is not an array of objects is an error; unreadable numeric
// columns are reported as problems and the rows are kept.
func DecodeRows(data []byte) ([]Product, []RowProblem, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, nil, fmt.Errorf("decode product rows: %w", err)
	}
	products := make([]Product, 0, len(rows))
	var problems []RowProblem
	for i, row := range rows {
		p, rowProblems := Normalize(row)
		for _, rp := range rowProblems {
			rp.Row = i
			problems = append(problems, rp)
		}
		products = append(products, p)
	}
	return products, problems, nil
}

// Normalize maps a raw store row onto Product. A missing cost is taken from the
// first legacy cost column present, and the active flag is coerced with ActiveFlag.
// A quantity or cost that is not numeric is set to zero and returned as a problem.
func Normalize(row map[string]any) (Product, []RowProblem) {
	var p Product
	var problems []RowProblem
	p.ID = stringValue(row[ColumnID])
	p.Name = stringValue(row[ColumnName])

	qty, err := decimalValue(row[ColumnQuantity])
	if err != nil {
		problems = append(problems, RowProblem{Name: p.Name, Column: ColumnQuantity, Err: err})
	}
	p.Quantity = qty.IntPart()

	rawCost := row[ColumnCost]
	if rawCost == nil {
		for _, col := range legacyCostColumns {
			if v := row[col]; v != nil {
				rawCost = v
				break
			}
		}
	}
	if p.Cost, err = decimalValue(rawCost); err != nil {
		problems = append(problems, RowProblem{Name: p.Name, Column: ColumnCost, Err: err})
	}

	p.IsActive = ActiveFlag(row[ColumnActive])

	if s, ok := row[ColumnCreatedAt].(string); ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			p.CreatedAt = &t
		}
	}
	return p, problems
}

// ActiveFlag coerces a stored active flag to a strict boolean.
// Absent or null means active. true, 1, "1", "true" and "t" (any case) mean active.
// Everything else is inactive.
func ActiveFlag(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return t
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return err == nil && d.Equal(decimal.NewFromInt(1))
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case string:
		switch strings.ToLower(t) {
		case "1", "true", "t":
			return true
		}
		return false
	default:
		return false
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func decimalValue(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return parseDecimal(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, nil
		}
		return parseDecimal(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric value %v", v)
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
