package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"regsho/internal/domain"
	"regsho/internal/util"
)

// Compile-time interface checks.
var _ Provider = (*AlpacaProvider)(nil)
var _ AssetProvider = (*AlpacaProvider)(nil)

// AlpacaProvider implements Provider and AssetProvider on the Alpaca
// market-data and trading APIs. All calls go through a shared rate limiter.
type AlpacaProvider struct {
	md      *marketdata.Client
	trading *alpaca.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider configured with the given
// credentials and endpoints. Empty URLs keep the SDK defaults.
func NewAlpacaProvider(apiKey, apiSecret, baseURL, dataURL string, rateLimitPerMin int) *AlpacaProvider {
	mdOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		mdOpts.BaseURL = dataURL
	}

	tOpts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		tOpts.BaseURL = baseURL
	}

	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &AlpacaProvider{
		md:      marketdata.NewClient(mdOpts),
		trading: alpaca.NewClient(tOpts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// DailyBars fetches adjusted daily bars for the symbol and overlays cash
// dividends and split ratios by ex-date. A corporate-actions failure only
// degrades those two columns to zero; the bars are still returned.
func (p *AlpacaProvider) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      domain.Day(start),
	}
	if !end.IsZero() {
		// Daily bars are timestamped at session start, so pushing the bound
		// to the end of the day keeps the last session inclusive.
		e := domain.Day(end)
		req.End = e.Add(24*time.Hour - time.Second)
	}

	bars, err := p.md.GetBars(symbol, req)
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	out := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.PriceBar{
			Date:   domain.Day(b.Timestamp.UTC()),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	if len(out) == 0 {
		return nil, nil
	}

	if err := p.overlayActions(ctx, symbol, out); err != nil {
		p.log.Warn("corporate actions unavailable", "symbol", symbol, "error", err)
	}
	return out, nil
}

// overlayActions fills the Dividend and Split columns of bars from the
// corporate-actions endpoint for the span the bars cover.
func (p *AlpacaProvider) overlayActions(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	first, last := bars[0].Date, bars[len(bars)-1].Date
	actions, err := p.md.GetCorporateActions(marketdata.GetCorporateActionsRequest{
		Symbols: []string{symbol},
		Types:   []string{"cash_dividend", "forward_split", "reverse_split"},
		Start:   civil.DateOf(first),
		End:     civil.DateOf(last),
	})
	if err != nil {
		return fmt.Errorf("GetCorporateActions %s: %w", symbol, err)
	}

	byDate := make(map[time.Time]int, len(bars))
	for i, b := range bars {
		byDate[b.Date] = i
	}

	for _, d := range actions.CashDividends {
		if i, ok := byDate[civilDay(d.ExDate)]; ok {
			bars[i].Dividend += d.Rate
		}
	}
	for _, s := range actions.ForwardSplits {
		if i, ok := byDate[civilDay(s.ExDate)]; ok && s.OldRate != 0 {
			bars[i].Split = s.NewRate / s.OldRate
		}
	}
	for _, s := range actions.ReverseSplits {
		if i, ok := byDate[civilDay(s.ExDate)]; ok && s.OldRate != 0 {
			bars[i].Split = s.NewRate / s.OldRate
		}
	}
	return nil
}

// Asset returns the recognized descriptive attributes for symbol from the
// trading API's asset endpoint.
func (p *AlpacaProvider) Asset(ctx context.Context, symbol string) (domain.SymbolMetadata, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.SymbolMetadata{}, err
	}

	a, err := p.trading.GetAsset(symbol)
	if err != nil {
		return domain.SymbolMetadata{}, fmt.Errorf("GetAsset %s: %w", symbol, err)
	}

	return domain.SymbolMetadata{
		Symbol:       strings.ToUpper(a.Symbol),
		Name:         a.Name,
		Exchange:     a.Exchange,
		Class:        string(a.Class),
		Status:       string(a.Status),
		Tradable:     a.Tradable,
		Marginable:   a.Marginable,
		Shortable:    a.Shortable,
		EasyToBorrow: a.EasyToBorrow,
		Fractionable: a.Fractionable,
	}, nil
}

func civilDay(d civil.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}
