// Package main runs the Smart Stock terminal client against a hosted product store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/smartstock/internal/cli"
	"github.com/abgdnv/smartstock/internal/client/config"
	"github.com/abgdnv/smartstock/internal/inventory"
	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/store"
	"github.com/abgdnv/smartstock/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/smartstock/pkg/config"
	"github.com/abgdnv/smartstock/pkg/config/configloader"
)

const appName = "inventory"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		if errors.Is(err, pkgconfig.ErrNotConfigured) {
			fmt.Println(config.SetupMessage)
			os.Exit(2)
		}
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
}

// run wires the store adapter, the controller and the REPL and blocks until
// the user leaves or the process is signalled.
func run(ctx context.Context) error {
	cfg, err := configloader.Load[*config.Config](appName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := bootstrap.NewLogger(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("Configuration loaded", "config", cfg.String())

	client, err := postgrest.NewFromConfig(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to create store client: %w", err)
	}

	declared, err := store.CapabilitiesFromConfig(cfg.Store.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema settings: %w", err)
	}
	caps := store.Probe(ctx, client, declared, cfg.Store.Table, cfg.Store.ActiveView, logger)

	productStore := store.NewRestStore(client, logger,
		store.WithCapabilities(caps),
		store.WithRelations(cfg.Store.Table, cfg.Store.ActiveView),
		store.WithConflictKey(cfg.Store.ConflictKey),
	)
	app := cli.NewApp(inventory.New(productStore, logger), os.Stdin, os.Stdout, logger)

	// stdin cannot be interrupted, so a signal ends the process without waiting for the REPL
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Info("Interrupted")
	}
	return nil
}
