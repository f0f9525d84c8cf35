package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"example.com/restock/internal/fakestore"
	"example.com/restock/internal/logging"
	"example.com/restock/internal/storefront"
)

func main() {
	var (
		addr     = flag.String("addr", ":8090", "HTTP listen address for the fake storefront")
		seedPath = flag.String("seed", "", "optional JSON file mapping product slug to catalog entry")
	)
	flag.Parse()

	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")).With("component", "fakestore.http")

	store := fakestore.NewStore()
	if err := seed(store, *seedPath); err != nil {
		logger.Error("seed catalog failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           fakestore.NewServer(store, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("fake storefront listening", "addr", *addr, "seed", *seedPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("fake storefront error", "error", err)
		}
	}()

	waitForShutdown(logger, server)
}

// seed loads the catalog from path, or a single demo product when path is empty.
func seed(store *fakestore.Store, path string) error {
	if path == "" {
		store.SetProduct("P123", storefront.Product{Result: storefront.ProductResult{
			ID:       42,
			IsOnline: true,
			Variants: []storefront.Variant{
				{ID: "v1", MerchantID: 7, Quantity: 3, Size: "M"},
				{ID: "v2", MerchantID: 7, Quantity: 0, Size: "L"},
			},
		}})
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var products map[string]storefront.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return err
	}
	for slug, p := range products {
		store.SetProduct(slug, p)
	}
	return nil
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("fake storefront stopped")
}
