package gather

import (
	"context"
	"fmt"
	"log/slog"

	"regsho/internal/quotes"
	"regsho/internal/store"
)

// Compile-time interface check.
var _ Synchronizer = (*MetadataCollector)(nil)

// MetadataCollector appends one descriptive record for every universe symbol
// not yet present in the metadata store. Best effort: a symbol that fails to
// fetch is skipped for this run and retried naturally on the next.
type MetadataCollector struct {
	assets quotes.AssetProvider
	shorts *store.ShortVolumeStore
	meta   *store.MetadataStore
	log    *slog.Logger
}

// NewMetadataCollector creates a collector over the given asset provider and
// stores.
func NewMetadataCollector(assets quotes.AssetProvider, shorts *store.ShortVolumeStore, meta *store.MetadataStore) *MetadataCollector {
	return &MetadataCollector{
		assets: assets,
		shorts: shorts,
		meta:   meta,
		log:    slog.Default().With("sync", "metadata"),
	}
}

// Name returns the synchronizer identifier.
func (c *MetadataCollector) Name() string { return "metadata" }

// Run fetches attributes for every symbol missing from the metadata store.
func (c *MetadataCollector) Run(ctx context.Context) error {
	records, err := c.shorts.Load()
	if err != nil {
		return fmt.Errorf("loading short-volume store: %w", err)
	}
	symbols, _ := symbolUniverse(records)

	existing, err := c.meta.Symbols()
	if err != nil {
		return fmt.Errorf("reading metadata store: %w", err)
	}

	writeHeader := !c.meta.Exists()
	fetched := 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := existing[symbol]; ok {
			continue
		}

		md, err := c.assets.Asset(ctx, symbol)
		if err != nil {
			c.log.Warn("skipped", "symbol", symbol, "error", err)
			continue
		}
		if err := c.meta.Append(md, writeHeader); err != nil {
			return fmt.Errorf("appending %s: %w", symbol, err)
		}
		writeHeader = false
		fetched++
		c.log.Info("fetched", "symbol", symbol)
	}

	c.log.Info("done", "fetched", fetched)
	return nil
}
