// Package cli is the terminal presentation of the inventory controller: a
// read-eval-print loop that maps commands onto controller operations and
// prints the prompts the controller posts.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abgdnv/smartstock/internal/inventory"
)

// App is the REPL state. It is driven from a single goroutine.
type App struct {
	ctl     *inventory.Controller
	scanner *bufio.Scanner
	out     io.Writer
	logger  *slog.Logger
}

// NewApp creates an App reading commands from in and writing to out.
func NewApp(ctl *inventory.Controller, in io.Reader, out io.Writer, logger *slog.Logger) *App {
	return &App{
		ctl:     ctl,
		scanner: bufio.NewScanner(in),
		out:     out,
		logger:  logger.With("component", "cli"),
	}
}

// Run loads the inventory and serves commands until exit, EOF or ctx is done.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to Smart Stock (type 'help' for commands)")
	_ = a.ctl.Refresh(ctx, false)
	a.drain(ctx)
	a.repl(ctx)
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// ask prints prompt and reads one trimmed line. ok is false on EOF.
func (a *App) ask(prompt string) (string, bool) {
	a.printf("%s: ", prompt)
	if !a.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.scanner.Text()), true
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (a *App) confirm(prompt string) bool {
	answer, ok := a.ask(prompt + " [y/N]")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// drain shows the pending interaction, if any. A confirm prompt is answered
// on the spot and the staged delete is confirmed or cancelled accordingly.
func (a *App) drain(ctx context.Context) {
	for {
		select {
		case i := <-a.ctl.Interactions():
			switch i.Kind {
			case inventory.InteractionConfirm:
				if a.confirm(i.Message) {
					if err := a.ctl.ConfirmDelete(ctx); err == nil {
						a.println("Deleted.")
					}
				} else {
					a.ctl.CancelDelete()
					a.println("Cancelled.")
				}
			default:
				a.println("!", i.Message)
			}
		default:
			return
		}
	}
}
