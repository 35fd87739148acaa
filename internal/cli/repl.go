package cli

import (
	"context"
	"strings"

	"github.com/abgdnv/smartstock/internal/product"
)

const helpText = `Available commands:
  list                      show the loaded products matching the search
  refresh                   reload from the store
  show active|inactive|all  switch visibility
  search [text]             filter by name, empty clears
  add                       create a product
  edit <name>               edit a product
  delete <name>             soft delete a product
  restore <name>            reactivate a product
  check <name>              report the stock of a product
  import <file>             stage a .csv/.xlsx file and upload it
  template <file>           write an import template (.csv or .xlsx)
  stats                     inventory summary
  activity                  recent activity
  exit | quit               leave`

// repl reads one command per line and dispatches it. Errors the controller
// already reported through an interaction are not printed twice.
func (a *App) repl(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		a.printf("stock (%s)> ", a.ctl.Visibility())
		if !a.scanner.Scan() {
			return
		}
		parts := strings.Fields(a.scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, arg := strings.ToLower(parts[0]), strings.Join(parts[1:], " ")

		switch cmd {
		case "help":
			a.println(helpText)
		case "l", "list":
			a.renderProducts(a.ctl.Visible())
		case "refresh":
			if err := a.ctl.Refresh(ctx, false); err == nil {
				a.renderProducts(a.ctl.Visible())
			}
		case "show":
			v, err := product.ParseVisibility(arg)
			if err != nil {
				a.println(err)
				continue
			}
			if err := a.ctl.SetVisibility(ctx, v); err == nil {
				a.renderProducts(a.ctl.Visible())
			}
		case "search":
			a.renderProducts(a.ctl.Search(arg))
		case "add":
			a.add(ctx)
		case "edit":
			if !a.requireArg(cmd, arg) {
				continue
			}
			a.edit(ctx, arg)
		case "delete":
			if !a.requireArg(cmd, arg) {
				continue
			}
			a.ctl.RequestDelete(arg)
		case "restore":
			if !a.requireArg(cmd, arg) {
				continue
			}
			if err := a.ctl.Restore(ctx, arg); err == nil {
				a.println("Restored.")
			}
		case "check":
			if !a.requireArg(cmd, arg) {
				continue
			}
			a.check(arg)
		case "import":
			if !a.requireArg(cmd, arg) {
				continue
			}
			a.importFile(ctx, arg)
		case "template":
			if !a.requireArg(cmd, arg) {
				continue
			}
			a.template(arg)
		case "stats":
			a.renderStats(a.ctl.Stats())
		case "activity":
			a.renderActivity(a.ctl.Activity())
		case "exit", "quit":
			a.println("Bye!")
			return
		default:
			a.println("Unknown command:", cmd)
		}
		a.drain(ctx)
	}
}

func (a *App) requireArg(cmd, arg string) bool {
	if arg == "" {
		a.printf("Usage: %s <name>\n", cmd)
		return false
	}
	return true
}
