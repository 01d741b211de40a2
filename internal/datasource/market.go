package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/sync/singleflight"

	"github.com/tradeswarm/tradeswarm/pkg/models"
)

// quoteSummaryBaseURL is var so tests can point it at a local server.
var quoteSummaryBaseURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"

// YahooMarket implements MarketData against Yahoo Finance. Price history
// goes through the chart API; fundamentals come from the quoteSummary
// modules endpoint.
type YahooMarket struct {
	cache   *Cache
	limiter *RateLimiter

	// Concurrent analysts often ask for the same ticker at once; the
	// group collapses those into a single upstream request.
	group singleflight.Group
}

// NewYahooMarket creates a Yahoo-backed market data source. ratePerMin
// caps outbound requests; cacheTTL controls how long responses are reused.
func NewYahooMarket(cacheTTL time.Duration, ratePerMin int) *YahooMarket {
	if ratePerMin <= 0 {
		ratePerMin = 30
	}
	return &YahooMarket{
		cache:   NewCache(cacheTTL),
		limiter: NewRateLimiter(ratePerMin, time.Minute),
	}
}

// History returns daily candles for the last `days` calendar days.
func (y *YahooMarket) History(ctx context.Context, ticker string, days int) ([]models.OHLCV, error) {
	if days <= 0 {
		days = 90
	}
	key := fmt.Sprintf("history:%s:%d", ticker, days)
	if v, ok := y.cache.Get(key); ok {
		return v.([]models.OHLCV), nil
	}

	v, err, _ := y.group.Do(key, func() (any, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		end := time.Now()
		start := end.AddDate(0, 0, -days)
		params := &chart.Params{
			Symbol:   ticker,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		var bars []*finance.ChartBar
		for iter.Next() {
			bars = append(bars, iter.Bar())
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
		}

		candles := convertBars(bars)
		y.cache.Set(key, candles)
		return candles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.OHLCV), nil
}

// convertBars maps chart API bars to OHLCV candles.
func convertBars(bars []*finance.ChartBar) []models.OHLCV {
	candles := make([]models.OHLCV, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, models.OHLCV{
			Date:     time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: bar.AdjClose,
			Volume:   int64(bar.Volume),
		})
	}
	return candles
}

// Metrics fetches fundamental metrics from the quoteSummary endpoint.
// A ticker the endpoint has no modules for returns an empty struct and
// no error; transport and HTTP failures are returned to the caller.
func (y *YahooMarket) Metrics(ctx context.Context, ticker string) (models.FundamentalMetrics, error) {
	key := "metrics:" + ticker
	if v, ok := y.cache.Get(key); ok {
		return v.(models.FundamentalMetrics), nil
	}

	v, err, _ := y.group.Do(key, func() (any, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		u := fmt.Sprintf("%s/%s?modules=%s",
			quoteSummaryBaseURL,
			url.PathEscape(ticker),
			"summaryDetail,defaultKeyStatistics,financialData,assetProfile")

		body, status, err := doGet(ctx, u, nil)
		if err != nil {
			switch status {
			case http.StatusNotFound:
				return nil, fmt.Errorf("fetch metrics for %s: %w", ticker, ErrTickerNotFound)
			case http.StatusTooManyRequests:
				return nil, fmt.Errorf("fetch metrics for %s: %w", ticker, ErrRateLimited)
			}
			return nil, fmt.Errorf("fetch metrics for %s: %w", ticker, err)
		}
		defer body.Close()

		var raw quoteSummaryResponse
		if err := json.NewDecoder(body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode metrics for %s: %w", ticker, err)
		}

		m := parseQuoteSummary(ticker, &raw)
		y.cache.Set(key, m)
		return m, nil
	})
	if err != nil {
		return models.FundamentalMetrics{}, err
	}
	return v.(models.FundamentalMetrics), nil
}

// --- quoteSummary response types ---

// yfValue is Yahoo's {raw, fmt} wrapper around a numeric field. Raw is a
// pointer so absent fields stay distinguishable from zero values.
type yfValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	SummaryDetail *struct {
		MarketCap        yfValue `json:"marketCap"`
		TrailingPE       yfValue `json:"trailingPE"`
		ForwardPE        yfValue `json:"forwardPE"`
		DividendYield    yfValue `json:"dividendYield"`
		Beta             yfValue `json:"beta"`
		FiftyTwoWeekHigh yfValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  yfValue `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		TrailingEps yfValue `json:"trailingEps"`
		ForwardEps  yfValue `json:"forwardEps"`
	} `json:"defaultKeyStatistics"`
	FinancialData *struct {
		ProfitMargins    yfValue `json:"profitMargins"`
		OperatingMargins yfValue `json:"operatingMargins"`
		RevenueGrowth    yfValue `json:"revenueGrowth"`
		FreeCashflow     yfValue `json:"freeCashflow"`
		DebtToEquity     yfValue `json:"debtToEquity"`
		ReturnOnEquity   yfValue `json:"returnOnEquity"`
		ReturnOnAssets   yfValue `json:"returnOnAssets"`
	} `json:"financialData"`
	AssetProfile *struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile"`
}

func parseQuoteSummary(ticker string, raw *quoteSummaryResponse) models.FundamentalMetrics {
	m := models.FundamentalMetrics{Symbol: ticker}
	if len(raw.QuoteSummary.Result) == 0 {
		return m
	}
	r := raw.QuoteSummary.Result[0]

	if sd := r.SummaryDetail; sd != nil {
		m.MarketCap = sd.MarketCap.Raw
		m.PERatio = sd.TrailingPE.Raw
		m.ForwardPE = sd.ForwardPE.Raw
		m.DividendYield = sd.DividendYield.Raw
		m.Beta = sd.Beta.Raw
		m.FiftyTwoWeekHigh = sd.FiftyTwoWeekHigh.Raw
		m.FiftyTwoWeekLow = sd.FiftyTwoWeekLow.Raw
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		m.EPS = ks.TrailingEps.Raw
		m.ForwardEPS = ks.ForwardEps.Raw
	}
	if fd := r.FinancialData; fd != nil {
		m.ProfitMargins = fd.ProfitMargins.Raw
		m.OperatingMargins = fd.OperatingMargins.Raw
		m.RevenueGrowth = fd.RevenueGrowth.Raw
		m.FreeCashflow = fd.FreeCashflow.Raw
		m.DebtToEquity = fd.DebtToEquity.Raw
		m.ReturnOnEquity = fd.ReturnOnEquity.Raw
		m.ReturnOnAssets = fd.ReturnOnAssets.Raw
	}
	if ap := r.AssetProfile; ap != nil {
		m.Sector = ap.Sector
		m.Industry = ap.Industry
	}
	return m
}
