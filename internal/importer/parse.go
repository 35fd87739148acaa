package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel workbooks.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Accepted header spellings, compared after trimming and lower-casing, in priority order.
var (
	nameHeaders     = []string{"product_name", "product name", "name"}
	quantityHeaders = []string{"quantity", "qty"}
	costHeaders     = []string{"cost", "price", "unit_price"}
)

var one = decimal.NewFromInt(1)

// Parse reads the first sheet of an .xlsx/.xlsm workbook or a .csv file into a
// new batch. A file that cannot be read yields an empty batch; the cause is logged.
func Parse(filename string, r io.Reader, logger *slog.Logger) *Batch {
	records, err := readRecords(filename, r)
	if err != nil {
		logger.Error("Failed to parse import file", "file", filename, "error", err)
		return NewBatch()
	}
	return NewBatch(mapRecords(records)...)
}

func readRecords(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		return cr.ReadAll()
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer func() { _ = f.Close() }()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		return f.GetRows(sheets[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// mapRecords treats the first record as the header and maps every following
// non-blank record onto a Row.
func mapRecords(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	var rows []Row
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Name:     firstNonEmpty(rec, index, nameHeaders),
			Quantity: atLeastOne(firstPresent(rec, index, quantityHeaders)).IntPart(),
			Cost:     atLeastOne(firstPresent(rec, index, costHeaders)),
		})
	}
	return rows
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func firstNonEmpty(rec []string, index map[string]int, headers []string) string {
	for _, h := range headers {
		if i, ok := index[h]; ok {
			if v := cell(rec, i); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstPresent returns the cell of the first header the file has, even if that cell is empty.
func firstPresent(rec []string, index map[string]int, headers []string) string {
	for _, h := range headers {
		if i, ok := index[h]; ok {
			return cell(rec, i)
		}
	}
	return ""
}

// atLeastOne parses s and substitutes 1 for empty, zero or non-numeric input.
// Negative numbers are kept so that validation can reject them.
func atLeastOne(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsZero() {
		return one
	}
	return d
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
