package models

import "time"

// TradeSide is the inferred aggressor side of an execution.
type TradeSide string

const (
	Buy         TradeSide = "BUY"
	Sell        TradeSide = "SELL"
	SideUnknown TradeSide = "UNKNOWN"
)

// Trade is a single option execution event. Immutable once created;
// retained only inside the ingestion buffer for a bounded window.
type Trade struct {
	Contract        Contract
	Timestamp       time.Time
	Price           float64
	Size            int64
	Venue           string
	Bid             float64 // quote captured at execution time
	Ask             float64
	UnderlyingPrice float64
	Side            TradeSide
}

// Premium is the total dollar cost: price x size x multiplier.
func (t *Trade) Premium() float64 {
	return t.Price * float64(t.Size) * float64(t.Contract.Multiplier)
}

// Mid is the quote midpoint at execution time.
func (t *Trade) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// SideInferrer maps an execution price and its captured quote to a side.
// The default heuristic is replaceable; it ignores multi-leg orders and
// mid-price crosses.
type SideInferrer func(price, bid, ask float64) TradeSide

// InferSide is the default aggressor heuristic: at or through the ask is
// a buy, at or through the bid is a sell, above mid leans buy.
func InferSide(price, bid, ask float64) TradeSide {
	if bid <= 0 || ask <= 0 || ask < bid {
		return SideUnknown
	}
	switch {
	case price >= ask:
		return Buy
	case price <= bid:
		return Sell
	case price > (bid+ask)/2:
		return Buy
	default:
		return Sell
	}
}

// IsAggressiveBuy reports a buy-side execution at or through the ask.
func (t *Trade) IsAggressiveBuy() bool {
	return t.Side == Buy && t.Ask > 0 && t.Price >= t.Ask
}

// IsAggressiveSell reports a sell-side execution at or through the bid.
func (t *Trade) IsAggressiveSell() bool {
	return t.Side == Sell && t.Bid > 0 && t.Price <= t.Bid
}

// Bar is a daily OHLCV bar used for technical level computation.
type Bar struct {
	Date   time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ChainEntry is a per-contract snapshot from an option chain scan,
// used for unusual volume / open interest detection.
type ChainEntry struct {
	Contract         Contract
	Volume           int64
	AvgVolume        int64
	OpenInterest     int64
	PrevOpenInterest int64
	Last             float64
	Bid              float64
	Ask              float64
	UnderlyingPrice  float64
}

// VolumeRatio is today's volume relative to the trailing average.
func (e *ChainEntry) VolumeRatio() float64 {
	if e.AvgVolume <= 0 {
		return 0
	}
	return float64(e.Volume) / float64(e.AvgVolume)
}

// OIChangePct is the percent change in open interest since the prior day.
func (e *ChainEntry) OIChangePct() float64 {
	if e.PrevOpenInterest <= 0 {
		return 0
	}
	return float64(e.OpenInterest-e.PrevOpenInterest) / float64(e.PrevOpenInterest) * 100
}
