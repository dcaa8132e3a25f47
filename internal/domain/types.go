// Package domain defines the record types shared by the synchronizers and
// the stores they maintain.
package domain

import "time"

// Day truncates t to midnight UTC. Every date in the system is normalized
// with it before being compared or used as a map key.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ShortVolumeRecord is one row of the daily short sale volume report: one
// (date, symbol, market) observation. The same (date, symbol) pair may
// appear once per reporting market.
type ShortVolumeRecord struct {
	Date              time.Time
	Symbol            string
	ShortVolume       int64
	ShortExemptVolume int64
	TotalVolume       int64
	Market            string
}

// PriceBar is one daily OHLCV bar for a symbol. Dividend carries the cash
// dividend rate on its ex-date and Split the split ratio on its ex-date;
// both are zero on all other days.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Dividend float64
	Split    float64
}

// ShortVolumeAggregate sums a symbol's short-volume figures for one date
// across all reporting markets.
type ShortVolumeAggregate struct {
	ShortVolume       int64
	ShortExemptVolume int64
	TotalVolume       int64
}

// MergedHistoryRecord is a price bar with the same-date short-volume
// aggregate attached. Short is nil when no short-volume data exists for the
// bar's date; the store serializes that as empty fields, not zeros.
type MergedHistoryRecord struct {
	PriceBar
	Short *ShortVolumeAggregate
}

// SymbolMetadata holds the recognized descriptive attributes for a symbol.
// Anything else the provider returns is dropped.
type SymbolMetadata struct {
	Symbol       string
	Name         string
	Exchange     string
	Class        string
	Status       string
	Tradable     bool
	Marginable   bool
	Shortable    bool
	EasyToBorrow bool
	Fractionable bool
}
