// Package quotes provides daily price history and symbol metadata from the
// market-data provider.
package quotes

import (
	"context"
	"time"

	"regsho/internal/domain"
)

// Provider returns daily price history for a symbol.
type Provider interface {
	// DailyBars returns chronological daily bars in [start, end], both
	// endpoints inclusive. A zero end means "through the latest available
	// session".
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
}

// AssetProvider returns descriptive attributes for a symbol.
type AssetProvider interface {
	// Asset returns the recognized metadata for symbol, or an error for an
	// unknown or delisted symbol.
	Asset(ctx context.Context, symbol string) (domain.SymbolMetadata, error)
}
