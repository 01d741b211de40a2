package utils

import (
	"strings"
)

// Common aliases for frequently discussed NSE names. LLM extraction
// mostly returns canonical symbols already, so this map only covers the
// shorthand retail investors actually type.
var tickerAliases = map[string]string{
	"RIL":           "RELIANCE",
	"INFOSYS":       "INFY",
	"HDFC BANK":     "HDFCBANK",
	"ICICI BANK":    "ICICIBANK",
	"SBI":           "SBIN",
	"AIRTEL":        "BHARTIARTL",
	"L&T":           "LT",
	"TATA MOTORS":   "TATAMOTORS",
	"TATA STEEL":    "TATASTEEL",
	"HCL TECH":      "HCLTECH",
	"KOTAK":         "KOTAKBANK",
	"AXIS BANK":     "AXISBANK",
	"SUN PHARMA":    "SUNPHARMA",
	"ASIAN PAINTS":  "ASIANPAINT",
	"NESTLE":        "NESTLEIND",
	"ULTRATECH":     "ULTRACEMCO",
	"TECH MAHINDRA": "TECHM",
	"MAHINDRA":      "M&M",
	"ADANI":         "ADANIENT",
	"HUL":           "HINDUNILVR",
	"COAL INDIA":    "COALINDIA",
}

// NormalizeTicker uppercases and trims a user-supplied symbol and
// resolves common aliases. A "$" prefix (common in chat) is stripped.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// HasExchangeSuffix reports whether the symbol already carries a Yahoo
// exchange suffix for NSE (.NS) or BSE (.BO).
func HasExchangeSuffix(ticker string) bool {
	return strings.HasSuffix(ticker, ".NS") || strings.HasSuffix(ticker, ".BO")
}

// EnsureSuffix appends .NS to a bare symbol. Symbols that already end
// in .NS or .BO are returned unchanged.
func EnsureSuffix(ticker string) string {
	ticker = NormalizeTicker(ticker)
	if ticker == "" || HasExchangeSuffix(ticker) {
		return ticker
	}
	return ticker + ".NS"
}

// BaseSymbol strips a trailing .NS or .BO suffix.
func BaseSymbol(ticker string) string {
	ticker = strings.TrimSuffix(ticker, ".NS")
	ticker = strings.TrimSuffix(ticker, ".BO")
	return ticker
}
