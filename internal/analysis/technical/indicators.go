// Package technical implements the technical indicators fed to the
// technical analyst. All series functions operate on []models.OHLCV
// candle slices; decimal prices are converted to float64 for the math.
package technical

import (
	"github.com/tradeswarm/tradeswarm/pkg/models"
)

// Closes extracts the close prices from a candle series.
func Closes(candles []models.OHLCV) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}
	return closes
}

// SMA calculates Simple Moving Average for the given period.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// SMALatest returns the most recent SMA value.
func SMALatest(data []float64, period int) float64 {
	vals := SMA(data, period)
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

// EMA calculates Exponential Moving Average for the given period,
// seeded with the SMA of the first `period` values.
func EMA(data []float64, period int) []float64 {
	n := len(data)
	if n == 0 || period <= 0 {
		return make([]float64, n)
	}

	ema := make([]float64, n)
	k := 2.0 / float64(period+1)

	if n < period {
		return ema
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}

	return ema
}

// EMALatest returns the most recent EMA value.
func EMALatest(data []float64, period int) float64 {
	vals := EMA(data, period)
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Default period is 14. Returns values 0–100; entries before the first
// complete period are zero.
func RSI(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < period+1 {
		return nil
	}

	closes := Closes(candles)
	rsi := make([]float64, n)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		rsi[period] = 100
	} else {
		rs := avgGain / avgLoss
		rsi[period] = 100 - (100 / (1 + rs))
	}

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		if avgLoss == 0 {
			rsi[i] = 100
		} else {
			rs := avgGain / avgLoss
			rsi[i] = 100 - (100 / (1 + rs))
		}
	}

	return rsi
}

// RSILatest returns only the most recent RSI value.
func RSILatest(candles []models.OHLCV, period int) float64 {
	vals := RSI(candles, period)
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

// MACDResult holds a single MACD computation point.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence.
// Default parameters: fast=12, slow=26, signal=9.
func MACD(candles []models.OHLCV, fast, slow, signal int) []MACDResult {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}

	closes := Closes(candles)
	if len(closes) < slow {
		return nil
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	n := len(closes)
	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := EMA(macdLine, signal)

	results := make([]MACDResult, n)
	for i := 0; i < n; i++ {
		results[i] = MACDResult{
			MACD:      macdLine[i],
			Signal:    signalLine[i],
			Histogram: macdLine[i] - signalLine[i],
		}
	}

	return results
}

// MACDLatest returns the most recent MACD values.
func MACDLatest(candles []models.OHLCV, fast, slow, signal int) MACDResult {
	results := MACD(candles, fast, slow, signal)
	if len(results) == 0 {
		return MACDResult{}
	}
	return results[len(results)-1]
}
