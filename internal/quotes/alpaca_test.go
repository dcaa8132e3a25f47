package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// barsBody serves the two June sessions in both response shapes the data API
// uses, so the test does not depend on which endpoint the SDK picks.
func barsBody(r *http.Request) string {
	rows := `[{"t":"2023-06-01T04:00:00Z","o":1.5,"h":2,"l":1,"c":1.75,"v":1000,"n":10,"vw":1.6},` +
		`{"t":"2023-06-02T04:00:00Z","o":2,"h":2,"l":2,"c":2,"v":500,"n":5,"vw":2}]`
	if sym := r.URL.Query().Get("symbols"); sym != "" {
		return fmt.Sprintf(`{"bars":{%q:%s},"next_page_token":null}`, sym, rows)
	}
	return fmt.Sprintf(`{"bars":%s,"symbol":"AAPL","next_page_token":null}`, rows)
}

// newProvider points a provider's data client at a stub exchange of the two
// endpoints DailyBars touches.
func newProvider(t *testing.T, actions http.HandlerFunc) *AlpacaProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "corporate-actions"):
			actions(w, r)
		case strings.Contains(r.URL.Path, "bars"):
			fmt.Fprint(w, barsBody(r))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewAlpacaProvider("key", "secret", "", srv.URL, 60000)
}

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDailyBarsOverlaysCorporateActions(t *testing.T) {
	actions := func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"corporate_actions":{`+
			`"cash_dividends":[{"symbol":"AAPL","rate":0.24,"ex_date":"2023-06-01"}],`+
			`"forward_splits":[{"symbol":"AAPL","new_rate":4,"old_rate":1,"ex_date":"2023-06-02"}],`+
			`"reverse_splits":[{"symbol":"AAPL","new_rate":1,"old_rate":10,"ex_date":"2023-05-15"}]`+
			`},"next_page_token":null}`)
	}
	p := newProvider(t, actions)

	bars, err := p.DailyBars(context.Background(), "AAPL", d(2023, time.June, 1), d(2023, time.June, 2))
	if err != nil {
		t.Fatalf("DailyBars returned error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("DailyBars returned %d bars, want 2", len(bars))
	}

	// The dividend lands on its ex-date and nowhere else.
	if bars[0].Dividend != 0.24 {
		t.Errorf("bars[0].Dividend = %v, want 0.24", bars[0].Dividend)
	}
	if bars[1].Dividend != 0 {
		t.Errorf("bars[1].Dividend = %v, want 0", bars[1].Dividend)
	}

	// The split column carries the new/old ratio on its ex-date.
	if bars[0].Split != 0 {
		t.Errorf("bars[0].Split = %v, want 0", bars[0].Split)
	}
	if bars[1].Split != 4 {
		t.Errorf("bars[1].Split = %v, want 4 (new/old = 4/1)", bars[1].Split)
	}

	// The reverse split's ex-date precedes the first bar, so it is dropped.
	for i, b := range bars {
		if b.Split == 0.1 {
			t.Errorf("bars[%d] carries the out-of-span reverse split", i)
		}
	}

	if !bars[0].Date.Equal(d(2023, time.June, 1)) || !bars[1].Date.Equal(d(2023, time.June, 2)) {
		t.Errorf("bar dates = %v, %v, want the two June sessions", bars[0].Date, bars[1].Date)
	}
	if bars[0].Close != 1.75 || bars[0].Volume != 1000 {
		t.Errorf("bars[0] = %+v, want close 1.75, volume 1000", bars[0])
	}
}

func TestDailyBarsDegradesWhenActionsUnavailable(t *testing.T) {
	actions := func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"internal server error"}`, http.StatusInternalServerError)
	}
	p := newProvider(t, actions)

	bars, err := p.DailyBars(context.Background(), "AAPL", d(2023, time.June, 1), d(2023, time.June, 2))
	if err != nil {
		t.Fatalf("DailyBars should still succeed when corporate actions fail, got: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("DailyBars returned %d bars, want 2", len(bars))
	}
	for i, b := range bars {
		if b.Dividend != 0 || b.Split != 0 {
			t.Errorf("bars[%d] dividend/split = %v/%v, want zeros when the overlay fails", i, b.Dividend, b.Split)
		}
	}
}
