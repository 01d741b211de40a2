package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCV is a single daily price bar.
type OHLCV struct {
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// FundamentalMetrics holds valuation and profitability figures for a
// listed company. Optional fields are nil when the upstream source does
// not report them, which happens often for smaller NSE names.
type FundamentalMetrics struct {
	Symbol           string   `json:"symbol"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	PERatio          *float64 `json:"pe_ratio,omitempty"`
	ForwardPE        *float64 `json:"forward_pe,omitempty"`
	EPS              *float64 `json:"eps,omitempty"`
	ForwardEPS       *float64 `json:"forward_eps,omitempty"`
	DividendYield    *float64 `json:"dividend_yield,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`
	ProfitMargins    *float64 `json:"profit_margins,omitempty"`
	OperatingMargins *float64 `json:"operating_margins,omitempty"`
	RevenueGrowth    *float64 `json:"revenue_growth,omitempty"`
	FreeCashflow     *float64 `json:"free_cashflow,omitempty"`
	DebtToEquity     *float64 `json:"debt_to_equity,omitempty"`
	ReturnOnEquity   *float64 `json:"return_on_equity,omitempty"`
	ReturnOnAssets   *float64 `json:"return_on_assets,omitempty"`
	Sector           string   `json:"sector,omitempty"`
	Industry         string   `json:"industry,omitempty"`
}

// IsEmpty reports whether no numeric metric was populated. The fetch
// layer returns an empty struct instead of an error when the upstream
// source has nothing for a symbol.
func (m FundamentalMetrics) IsEmpty() bool {
	return m.MarketCap == nil && m.PERatio == nil && m.ForwardPE == nil &&
		m.EPS == nil && m.ForwardEPS == nil && m.DividendYield == nil &&
		m.Beta == nil && m.FiftyTwoWeekHigh == nil && m.FiftyTwoWeekLow == nil &&
		m.ProfitMargins == nil && m.OperatingMargins == nil &&
		m.RevenueGrowth == nil && m.FreeCashflow == nil &&
		m.DebtToEquity == nil && m.ReturnOnEquity == nil && m.ReturnOnAssets == nil
}

// NewsArticle is a single headline from a news search.
type NewsArticle struct {
	Title   string    `json:"title"`
	Snippet string    `json:"snippet,omitempty"`
	Date    time.Time `json:"date"`
	Source  string    `json:"source,omitempty"`
	URL     string    `json:"url,omitempty"`
}
