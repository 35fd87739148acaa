package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/abgdnv/smartstock/internal/importer"
	"github.com/abgdnv/smartstock/internal/inventory"
	"github.com/abgdnv/smartstock/internal/product"
)

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *App) renderProducts(rows []product.Product) {
	if len(rows) == 0 {
		a.println("No products.")
		return
	}
	tw := a.table()
	_, _ = fmt.Fprintln(tw, "NAME\tQTY\tCOST\tVALUE\tSTATUS\tACTIVE")
	for _, p := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%t\n",
			p.Name, p.Quantity, p.Cost.StringFixed(2), p.Value().StringFixed(2), inventory.StockStatus(p.Quantity), p.IsActive)
	}
	_ = tw.Flush()
}

func (a *App) renderRows(rows []importer.Row) {
	tw := a.table()
	_, _ = fmt.Fprintln(tw, "ROW\tNAME\tQTY\tCOST")
	for i, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, r.Name, r.Quantity, r.Cost.StringFixed(2))
	}
	_ = tw.Flush()
}

func (a *App) renderStats(s inventory.Stats) {
	tw := a.table()
	_, _ = fmt.Fprintf(tw, "Total items\t%d\n", s.TotalItems)
	_, _ = fmt.Fprintf(tw, "Total value\t%s\n", s.TotalValue.StringFixed(2))
	_, _ = fmt.Fprintf(tw, "Low stock\t%d\n", s.LowStock)
	_, _ = fmt.Fprintf(tw, "Unique products\t%d\n", s.UniqueProducts)
	_ = tw.Flush()
}

func (a *App) renderActivity(entries []inventory.Activity) {
	if len(entries) == 0 {
		a.println("No activity yet.")
		return
	}
	tw := a.table()
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.At.Format(time.TimeOnly), e.Kind, e.Message)
	}
	_ = tw.Flush()
}
