package technical

import "github.com/tradeswarm/tradeswarm/pkg/models"

// IndicatorRow is one dated row of the indicator table handed to the
// technical analyst alongside the raw price action.
type IndicatorRow struct {
	Date      string  `json:"date"`
	Close     float64 `json:"close"`
	SMA20     float64 `json:"sma_20"`
	SMA50     float64 `json:"sma_50"`
	EMA20     float64 `json:"ema_20"`
	RSI14     float64 `json:"rsi_14"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"macd_signal"`
	Histogram float64 `json:"macd_histogram"`
}

// BuildTable computes the standard indicator set over the full candle
// series, one row per trading day.
func BuildTable(candles []models.OHLCV) []IndicatorRow {
	n := len(candles)
	if n == 0 {
		return nil
	}

	closes := Closes(candles)
	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)
	ema20 := EMA(closes, 20)
	rsi := RSI(candles, 14)
	macd := MACD(candles, 12, 26, 9)

	at := func(s []float64, i int) float64 {
		if i < len(s) {
			return s[i]
		}
		return 0
	}

	rows := make([]IndicatorRow, n)
	for i := 0; i < n; i++ {
		row := IndicatorRow{
			Date:  candles[i].Date.Format("2006-01-02"),
			Close: closes[i],
			SMA20: at(sma20, i),
			SMA50: at(sma50, i),
			EMA20: at(ema20, i),
			RSI14: at(rsi, i),
		}
		if i < len(macd) {
			row.MACD = macd[i].MACD
			row.Signal = macd[i].Signal
			row.Histogram = macd[i].Histogram
		}
		rows[i] = row
	}
	return rows
}

// Tail returns the last n rows of the table.
func Tail(rows []IndicatorRow, n int) []IndicatorRow {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
