package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"regsho/internal/domain"
)

const historyDateLayout = "2006-01-02"

// historyHeader preserves the column layout of existing data files,
// including the legacy "Dividends" and "Stock Splits" names.
var historyHeader = []string{
	"Date", "Open", "High", "Low", "Close", "Volume",
	"Dividends", "Stock Splits",
	"ShortVolume", "ShortExemptVolume", "TotalVolume",
}

// HistoryStore holds one append-only merged price-history file per symbol.
type HistoryStore struct {
	dir string
}

// NewHistoryStore roots the store at <dataDir>/stock_data, creating the
// directory when missing.
func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	dir := filepath.Join(dataDir, "stock_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating stock data dir: %w", err)
	}
	return &HistoryStore{dir: dir}, nil
}

// PathFor returns the store file for a symbol.
func (s *HistoryStore) PathFor(symbol string) string {
	return filepath.Join(s.dir, strings.ToUpper(symbol)+".csv")
}

// Exists reports whether the symbol's store file has been created.
func (s *HistoryStore) Exists(symbol string) bool {
	return fileExists(s.PathFor(symbol))
}

// LastDate returns the session date of the symbol's final row.
func (s *HistoryStore) LastDate(symbol string) (time.Time, error) {
	return lastDate(s.PathFor(symbol), historyDateLayout)
}

// Append writes the symbol's merged rows in a single write, with the header
// in front when the store is new. Rows with a nil short-volume aggregate get
// empty trailing fields: absent, not zero.
func (s *HistoryStore) Append(symbol string, rows []domain.MergedHistoryRecord, writeHeader bool) error {
	lines := make([]string, 0, len(rows)+1)
	if writeHeader {
		lines = append(lines, strings.Join(historyHeader, Delimiter))
	}
	for _, r := range rows {
		cols := []string{
			r.Date.Format(historyDateLayout),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			strconv.FormatInt(r.Volume, 10),
			formatFloat(r.Dividend),
			formatFloat(r.Split),
		}
		if r.Short != nil {
			cols = append(cols,
				strconv.FormatInt(r.Short.ShortVolume, 10),
				strconv.FormatInt(r.Short.ShortExemptVolume, 10),
				strconv.FormatInt(r.Short.TotalVolume, 10),
			)
		} else {
			cols = append(cols, "", "", "")
		}
		lines = append(lines, strings.Join(cols, Delimiter))
	}
	return appendLines(s.PathFor(symbol), lines)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
