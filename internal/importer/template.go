package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a template file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const templateSheet = "Template"

var (
	templateHeader = []string{"product_name", "quantity", "cost"}
	templateSample = []any{"Sample Product", 10, 150.00}
)

// FormatFromFilename picks the template format from the file extension.
func FormatFromFilename(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// WriteTemplate writes an import template holding the header and one sample row.
func WriteTemplate(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(templateHeader); err != nil {
			return err
		}
		if err := cw.Write([]string{"Sample Product", "10", "150.00"}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	case FormatXLSX:
		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
			return fmt.Errorf("name template sheet: %w", err)
		}
		header := make([]any, len(templateHeader))
		for i, h := range templateHeader {
			header[i] = h
		}
		if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
			return fmt.Errorf("write template header: %w", err)
		}
		sample := templateSample
		if err := f.SetSheetRow(templateSheet, "A2", &sample); err != nil {
			return fmt.Errorf("write template sample: %w", err)
		}
		_, err := f.WriteTo(w)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
