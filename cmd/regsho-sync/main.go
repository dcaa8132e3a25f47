// Command regsho-sync incrementally harvests the daily short sale volume
// report and the matching per-symbol price histories into append-only
// pipe-delimited files. It takes no arguments: each run fetches only what
// the on-disk stores are missing, so reruns resume where the last one
// stopped.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"regsho/internal/config"
	"regsho/internal/finra"
	"regsho/internal/gather"
	"regsho/internal/quotes"
	"regsho/internal/store"
	"regsho/internal/util"
)

func main() {
	cfgPath := "config/regsho.yaml"
	if p := os.Getenv("REGSHO_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	shortStore, err := store.NewShortVolumeStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to open short-volume store: %v", err)
	}
	histStore, err := store.NewHistoryStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	metaStore, err := store.NewMetadataStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to open metadata store: %v", err)
	}

	feed := finra.NewClient(cfg.Finra.BaseURL)
	provider := quotes.NewAlpacaProvider(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.BaseURL,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Strictly sequential: the history synchronizer reads the store the
	// short-volume synchronizer just finished appending to.
	syncs := []gather.Synchronizer{
		gather.NewShortVolumeSynchronizer(feed, shortStore),
		gather.NewHistorySynchronizer(provider, shortStore, histStore),
		gather.NewMetadataCollector(provider, shortStore, metaStore),
	}
	for _, s := range syncs {
		slog.Info("starting", "sync", s.Name())
		if err := s.Run(ctx); err != nil {
			log.Fatalf("%s: %v", s.Name(), err)
		}
	}
}
