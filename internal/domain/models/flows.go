package models

import "time"

// DailyFlow aggregates classified signals for one symbol on one calendar
// day. Mutated incrementally as signals arrive, evicted past the lookback
// window.
type DailyFlow struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`

	BullishPremium   float64 `json:"bullish_premium"`
	BullishCount     int     `json:"bullish_count"`
	BullishContracts int64   `json:"bullish_contracts"`

	BearishPremium   float64 `json:"bearish_premium"`
	BearishCount     int     `json:"bearish_count"`
	BearishContracts int64   `json:"bearish_contracts"`

	NeutralPremium float64 `json:"neutral_premium"`
	NeutralCount   int     `json:"neutral_count"`

	SweepCount   int     `json:"sweep_count"`
	SweepPremium float64 `json:"sweep_premium"`
}

// TotalPremium sums all directional premium for the day.
func (d *DailyFlow) TotalPremium() float64 {
	return d.BullishPremium + d.BearishPremium + d.NeutralPremium
}

// TotalCount sums all signal counts for the day.
func (d *DailyFlow) TotalCount() int {
	return d.BullishCount + d.BearishCount + d.NeutralCount
}

// NetDirection resolves the day's dominant side: one side must exceed the
// other by the given ratio, otherwise the day is neutral.
func (d *DailyFlow) NetDirection(ratio float64) FlowDirection {
	switch {
	case d.BullishPremium > d.BearishPremium*ratio:
		return Bullish
	case d.BearishPremium > d.BullishPremium*ratio:
		return Bearish
	default:
		return Neutral
	}
}

// AccumulationPattern is a per-symbol multi-day inference. Recomputed on
// demand from the retained daily buckets, superseded on each recomputation.
type AccumulationPattern struct {
	Symbol      string          `json:"symbol"`
	PatternType PositioningType `json:"pattern_type"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`

	TotalPremium    float64 `json:"total_premium"`
	TotalSignals    int     `json:"total_signals"`
	ConsecutiveDays int     `json:"consecutive_days"`

	BullishDays int `json:"bullish_days"`
	BearishDays int `json:"bearish_days"`
	NeutralDays int `json:"neutral_days"`

	BullishPremium float64 `json:"bullish_premium"`
	BearishPremium float64 `json:"bearish_premium"`

	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}
