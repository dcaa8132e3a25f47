package gather

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"regsho/internal/domain"
	"regsho/internal/store"
)

// fakeAssets serves canned metadata per symbol and records every request.
type fakeAssets struct {
	assets map[string]domain.SymbolMetadata
	calls  []string
}

func (f *fakeAssets) Asset(_ context.Context, symbol string) (domain.SymbolMetadata, error) {
	f.calls = append(f.calls, symbol)
	md, ok := f.assets[symbol]
	if !ok {
		return domain.SymbolMetadata{}, errors.New("asset not found")
	}
	return md, nil
}

func asset(symbol, name string) domain.SymbolMetadata {
	return domain.SymbolMetadata{
		Symbol:   symbol,
		Name:     name,
		Exchange: "NASDAQ",
		Class:    "us_equity",
		Status:   "active",
		Tradable: true,
	}
}

func newMetadataCollector(t *testing.T, assets *fakeAssets, shorts []domain.ShortVolumeRecord) (*MetadataCollector, *store.MetadataStore) {
	t.Helper()
	dir := t.TempDir()
	sv, err := store.NewShortVolumeStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := sv.AppendDay(shorts, false); err != nil {
		t.Fatal(err)
	}
	ms, err := store.NewMetadataStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return NewMetadataCollector(assets, sv, ms), ms
}

func TestMetadataCollectorFetchesMissingSymbols(t *testing.T) {
	shorts := []domain.ShortVolumeRecord{
		shortRec(d(2023, time.June, 1), "AAPL", 100, 5, 200, "B"),
		shortRec(d(2023, time.June, 1), "MSFT", 30, 0, 90, "B"),
	}
	assets := &fakeAssets{assets: map[string]domain.SymbolMetadata{
		"MSFT": asset("MSFT", "Microsoft Corporation"),
	}}
	collector, ms := newMetadataCollector(t, assets, shorts)

	// AAPL is already on file; only MSFT should be fetched.
	if err := ms.Append(asset("AAPL", "Apple Inc."), true); err != nil {
		t.Fatal(err)
	}

	if err := collector.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(assets.calls) != 1 || assets.calls[0] != "MSFT" {
		t.Errorf("asset calls = %v, want exactly [MSFT]", assets.calls)
	}

	data, err := os.ReadFile(ms.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("file has %d lines, want header + 2 rows: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[2], "MSFT|Microsoft Corporation|") {
		t.Errorf("appended row = %q", lines[2])
	}
	if got := strings.Count(string(data), "symbol|"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
}

func TestMetadataCollectorSkipsFailedSymbol(t *testing.T) {
	shorts := []domain.ShortVolumeRecord{
		shortRec(d(2023, time.June, 1), "GONE", 10, 0, 20, "B"),
		shortRec(d(2023, time.June, 1), "MSFT", 30, 0, 90, "B"),
	}
	assets := &fakeAssets{assets: map[string]domain.SymbolMetadata{
		"MSFT": asset("MSFT", "Microsoft Corporation"),
	}}
	collector, ms := newMetadataCollector(t, assets, shorts)

	if err := collector.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v (a failed symbol must not be fatal)", err)
	}

	got, err := ms.Symbols()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["MSFT"]; !ok {
		t.Error("MSFT missing; the failure of one symbol must not stop the rest")
	}
	if _, ok := got["GONE"]; ok {
		t.Error("GONE should not be recorded after a failed fetch")
	}
}

func TestMetadataCollectorHeaderOnFirstWriteOnly(t *testing.T) {
	shorts := []domain.ShortVolumeRecord{
		shortRec(d(2023, time.June, 1), "AAPL", 100, 5, 200, "B"),
		shortRec(d(2023, time.June, 1), "MSFT", 30, 0, 90, "B"),
	}
	assets := &fakeAssets{assets: map[string]domain.SymbolMetadata{
		"AAPL": asset("AAPL", "Apple Inc."),
		"MSFT": asset("MSFT", "Microsoft Corporation"),
	}}
	collector, ms := newMetadataCollector(t, assets, shorts)

	if err := collector.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(ms.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("file has %d lines, want header + 2 rows: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "symbol|name|") {
		t.Errorf("first line = %q, want header", lines[0])
	}
	if got := strings.Count(string(data), "symbol|name|"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}

	// A second run finds everything present and fetches nothing.
	assets.calls = nil
	if err := collector.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(assets.calls) != 0 {
		t.Errorf("second run fetched %v, want nothing", assets.calls)
	}
}
