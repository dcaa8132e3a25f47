package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"regsho/internal/calendar"
	"regsho/internal/domain"
	"regsho/internal/quotes"
	"regsho/internal/store"
)

// Compile-time interface check.
var _ Synchronizer = (*HistorySynchronizer)(nil)

// HistorySynchronizer maintains one merged price/short-volume history file
// per symbol observed in the short-volume store. Symbols are processed one
// at a time; each symbol's append happens at the end of its processing, so
// an interruption leaves completed symbols committed and the current one
// untouched.
type HistorySynchronizer struct {
	quotes quotes.Provider
	shorts *store.ShortVolumeStore
	hist   *store.HistoryStore
	log    *slog.Logger
}

// NewHistorySynchronizer creates a synchronizer over the given provider and
// stores. The short-volume store is only ever read.
func NewHistorySynchronizer(p quotes.Provider, shorts *store.ShortVolumeStore, hist *store.HistoryStore) *HistorySynchronizer {
	return &HistorySynchronizer{
		quotes: p,
		shorts: shorts,
		hist:   hist,
		log:    slog.Default().With("sync", "history"),
	}
}

// Name returns the synchronizer identifier.
func (s *HistorySynchronizer) Name() string { return "history" }

// Run loads the short-volume store and brings every symbol's history file up
// to date. Per-symbol failures are logged and skipped, never fatal; the next
// run recomputes the same missing range from the untouched store.
func (s *HistorySynchronizer) Run(ctx context.Context) error {
	records, err := s.shorts.Load()
	if err != nil {
		return fmt.Errorf("loading short-volume store: %w", err)
	}

	symbols, bySymbol := symbolUniverse(records)
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.syncSymbol(ctx, symbol, bySymbol[symbol])
	}

	s.log.Info("done", "symbols", len(symbols))
	return nil
}

// symbolUniverse groups the short-volume rows by symbol, preserving
// first-encounter order. Rows within a symbol keep store order, which is
// date ascending.
func symbolUniverse(records []domain.ShortVolumeRecord) ([]string, map[string][]domain.ShortVolumeRecord) {
	var symbols []string
	bySymbol := make(map[string][]domain.ShortVolumeRecord)
	for _, r := range records {
		if _, ok := bySymbol[r.Symbol]; !ok {
			symbols = append(symbols, r.Symbol)
		}
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
	}
	return symbols, bySymbol
}

// syncSymbol fetches the missing bar range for one symbol, merges the
// short-volume aggregates onto it, and appends the result.
func (s *HistorySynchronizer) syncSymbol(ctx context.Context, symbol string, shorts []domain.ShortVolumeRecord) {
	first := shorts[0].Date
	last := shorts[len(shorts)-1].Date

	exists := s.hist.Exists(symbol)

	var bars []domain.PriceBar
	var err error
	if exists {
		lastStored, derr := s.hist.LastDate(symbol)
		if derr != nil {
			s.log.Warn("skipped", "symbol", symbol, "error", derr)
			return
		}
		// Candidate range runs to one past the symbol's last short-volume
		// date. Empty means the store already covers it.
		dates := calendar.TradingDates(lastStored.AddDate(0, 0, 1), last.AddDate(0, 0, 1))
		if len(dates) == 0 {
			s.log.Info("up-to-date", "symbol", symbol)
			return
		}
		bars, err = s.quotes.DailyBars(ctx, symbol, dates[0], time.Time{})
	} else {
		bars, err = s.quotes.DailyBars(ctx, symbol, first, last)
	}
	if err != nil {
		s.log.Warn("skipped", "symbol", symbol, "error", err)
		return
	}
	if len(bars) == 0 {
		s.log.Warn("skipped", "symbol", symbol, "reason", "no bars returned")
		return
	}

	merged := mergeShortVolume(bars, shorts)
	if err := s.hist.Append(symbol, merged, !exists); err != nil {
		s.log.Warn("skipped", "symbol", symbol, "error", err)
		return
	}

	s.log.Info("fetched", "symbol", symbol,
		"from", bars[0].Date.Format("2006-01-02"),
		"to", bars[len(bars)-1].Date.Format("2006-01-02"),
		"rows", len(merged))
}

// mergeShortVolume left-joins per-date short-volume aggregates onto the
// bars. Bars drive the join: a bar date with no aggregate keeps a nil
// Short, an aggregate date with no bar is dropped. Duplicate bar dates keep
// only the first occurrence.
func mergeShortVolume(bars []domain.PriceBar, shorts []domain.ShortVolumeRecord) []domain.MergedHistoryRecord {
	first := domain.Day(bars[0].Date)
	last := domain.Day(bars[len(bars)-1].Date)

	// Sum across markets, restricted to the span the bars cover.
	agg := make(map[time.Time]*domain.ShortVolumeAggregate)
	for _, r := range shorts {
		d := domain.Day(r.Date)
		if d.Before(first) || d.After(last) {
			continue
		}
		a := agg[d]
		if a == nil {
			a = &domain.ShortVolumeAggregate{}
			agg[d] = a
		}
		a.ShortVolume += r.ShortVolume
		a.ShortExemptVolume += r.ShortExemptVolume
		a.TotalVolume += r.TotalVolume
	}

	seen := make(map[time.Time]bool, len(bars))
	merged := make([]domain.MergedHistoryRecord, 0, len(bars))
	for _, b := range bars {
		d := domain.Day(b.Date)
		if seen[d] {
			continue
		}
		seen[d] = true
		b.Date = d
		merged = append(merged, domain.MergedHistoryRecord{PriceBar: b, Short: agg[d]})
	}
	return merged
}
