package models

import "strings"

var sectorMappings = map[string]string{
	// Technology
	"AAPL": "Technology", "MSFT": "Technology", "GOOGL": "Technology",
	"GOOG": "Technology", "META": "Technology", "NVDA": "Technology",
	"AMD": "Technology", "INTC": "Technology", "CRM": "Technology",
	"ORCL": "Technology", "ADBE": "Technology", "AVGO": "Technology",

	// Consumer
	"AMZN": "Consumer", "TSLA": "Consumer", "HD": "Consumer",
	"NKE": "Consumer", "MCD": "Consumer", "SBUX": "Consumer",
	"DIS": "Consumer", "NFLX": "Consumer",

	// Financials
	"JPM": "Financials", "BAC": "Financials", "WFC": "Financials",
	"GS": "Financials", "MS": "Financials", "C": "Financials",
	"V": "Financials", "MA": "Financials", "BRK.B": "Financials",

	// Healthcare
	"JNJ": "Healthcare", "UNH": "Healthcare", "PFE": "Healthcare",
	"MRK": "Healthcare", "ABBV": "Healthcare", "LLY": "Healthcare",

	// Energy
	"XOM": "Energy", "CVX": "Energy", "COP": "Energy", "SLB": "Energy",

	// Industrials
	"BA": "Industrials", "CAT": "Industrials", "GE": "Industrials",
	"UPS": "Industrials", "HON": "Industrials",

	// Index / ETF
	"SPY": "Index", "QQQ": "Index", "IWM": "Index", "DIA": "Index",
	"VIX": "Index", "XLF": "Index", "XLE": "Index", "XLK": "Index",
}

// Sector returns the sector for a symbol, "Other" when unmapped.
func Sector(symbol string) string {
	if s, ok := sectorMappings[strings.ToUpper(symbol)]; ok {
		return s
	}
	return "Other"
}
