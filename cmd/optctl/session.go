package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/carstonks/options-engine/internal/catalog"
	"github.com/carstonks/options-engine/internal/config"
	"github.com/carstonks/options-engine/internal/correlation"
	"github.com/carstonks/options-engine/internal/logger"
	"github.com/carstonks/options-engine/internal/notification"
	"github.com/carstonks/options-engine/internal/store"
	"github.com/carstonks/options-engine/internal/trade"
)

// stderrNotifier prints toasts for the terminal.
type stderrNotifier struct{ w io.Writer }

func (n stderrNotifier) Send(_ context.Context, t notification.Toast) error {
	_, err := fmt.Fprintf(n.w, "[%s] %s\n", t.Level, t.Message)
	return err
}

// openService loads configuration, opens the store and restores the ledger.
// The returned close function releases the store.
func openService(ctx context.Context) (*trade.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.InitWriter(os.Stderr, "optctl", cfg.LogLevel)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	svc := trade.NewService(st, catalog.Default(),
		correlation.NewPositionLimiter(cfg.MaxContractsPerCar, cfg.MaxContractsPerBrand),
		stderrNotifier{w: os.Stderr},
		trade.WithStartingCash(cfg.StartingCash),
	)
	if err := svc.Load(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return svc, func() { st.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
