package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abgdnv/smartstock/internal/importer"
	"github.com/shopspring/decimal"
)

const importHelp = `Staged rows can be edited before upload:
  rows                                 list staged rows
  set <row> name|quantity|cost <value> change a cell
  commit                               upload all rows
  cancel                               discard the batch`

// importFile stages filename and runs the batch editor until the batch is
// committed or cancelled.
func (a *App) importFile(ctx context.Context, filename string) {
	f, err := os.Open(filename)
	if err != nil {
		a.println("Cannot open file:", err)
		return
	}
	batch := importer.Parse(filename, f, a.logger)
	_ = f.Close()

	if batch.Len() == 0 {
		a.println("No rows found in", filename)
		return
	}
	a.printf("Staged %d rows from %s\n", batch.Len(), filename)
	a.renderRows(batch.Rows())
	a.println(importHelp)

	for {
		line, ok := a.ask("import")
		if !ok {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch strings.ToLower(parts[0]) {
		case "rows":
			a.renderRows(batch.Rows())
		case "set":
			if err := setCell(batch, parts[1:]); err != nil {
				a.println(err)
				continue
			}
			a.renderRows(batch.Rows())
		case "commit":
			if err := a.ctl.Import(ctx, batch); err == nil {
				a.println("Upload complete.")
				return
			}
			// the controller posted the reason; keep the batch for fixing
			a.drain(ctx)
		case "cancel":
			batch.Clear()
			a.println("Import discarded.")
			return
		default:
			a.println(importHelp)
		}
	}
}

// setCell applies "<row> <field> <value...>" with rows numbered from 1.
func setCell(batch *importer.Batch, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: set <row> name|quantity|cost <value>")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid row number %q", args[0])
	}
	i, value := row-1, strings.Join(args[2:], " ")
	switch strings.ToLower(args[1]) {
	case "name":
		return batch.SetName(i, value)
	case "quantity", "qty":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", value)
		}
		return batch.SetQuantity(i, n)
	case "cost":
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid cost %q", value)
		}
		return batch.SetCost(i, d)
	default:
		return fmt.Errorf("unknown field %q", args[1])
	}
}

func (a *App) template(filename string) {
	format, err := importer.FormatFromFilename(filename)
	if err != nil {
		a.println(err)
		return
	}
	f, err := os.Create(filename)
	if err != nil {
		a.println("Cannot create file:", err)
		return
	}
	if err := importer.WriteTemplate(f, format); err != nil {
		_ = f.Close()
		a.println("Cannot write template:", err)
		return
	}
	if err := f.Close(); err != nil {
		a.println("Cannot write template:", err)
		return
	}
	a.println("Template written to", filename)
}
