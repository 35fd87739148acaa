package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abgdnv/smartstock/internal/inventory"
	"github.com/shopspring/decimal"
)

func (a *App) add(ctx context.Context) {
	a.ctl.OpenCreate()
	draft, ok := a.fillDraft(a.ctl.Form().Draft)
	if !ok {
		a.ctl.CloseForm()
		return
	}
	if err := a.ctl.Save(ctx, draft); err == nil {
		a.println("Added", draft.Name)
	}
}

func (a *App) edit(ctx context.Context, name string) {
	current, err := a.ctl.OpenEdit(name)
	if err != nil {
		a.println(err)
		return
	}
	draft, ok := a.fillDraft(current)
	if !ok {
		a.ctl.CloseForm()
		return
	}
	if err := a.ctl.Save(ctx, draft); err == nil {
		a.println("Updated", draft.Name)
	}
}

// fillDraft prompts for every field showing the current value; a blank answer
// keeps it. A quantity that is not an integer is left unset so that the form
// validation reports it.
func (a *App) fillDraft(d inventory.Draft) (inventory.Draft, bool) {
	name, ok := a.ask(withDefault("Name", d.Name))
	if !ok {
		return d, false
	}
	if name != "" {
		d.Name = name
	}

	qtyDefault := ""
	if d.Quantity != nil {
		qtyDefault = strconv.FormatInt(*d.Quantity, 10)
	}
	qty, ok := a.ask(withDefault("Quantity", qtyDefault))
	if !ok {
		return d, false
	}
	if qty != "" {
		if n, err := strconv.ParseInt(qty, 10, 64); err == nil {
			d.Quantity = &n
		} else {
			d.Quantity = nil
		}
	}

	cost, ok := a.ask(withDefault("Cost", d.Cost.StringFixed(2)))
	if !ok {
		return d, false
	}
	if cost != "" {
		c, err := decimal.NewFromString(cost)
		if err != nil {
			a.println("Invalid cost:", cost)
			return d, false
		}
		d.Cost = c
	}
	return d, true
}

func withDefault(label, current string) string {
	if current == "" {
		return label
	}
	return fmt.Sprintf("%s [%s]", label, current)
}

func (a *App) check(name string) {
	p, err := a.ctl.Check(name)
	if err != nil {
		a.println(err)
		return
	}
	a.printf("%s: %d in stock (%s)\n", p.Name, p.Quantity, inventory.StockStatus(p.Quantity))
}
