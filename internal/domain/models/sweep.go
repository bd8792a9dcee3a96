package models

import "time"

// SweepKey deduplicates sweeps: at most one per contract per detection window.
type SweepKey struct {
	Contract    ContractKey
	WindowStart int64 // unix ms floored to the detection window
}

// SweepEvent is a synthetic aggregate over a burst of fills for one
// contract across multiple venues. Never mutated after creation.
type SweepEvent struct {
	Key             SweepKey
	Contract        Contract
	Trades          []*Trade
	TotalContracts  int64
	TotalPremium    float64
	AvgPrice        float64 // volume-weighted
	Exchanges       int
	TimeSpan        time.Duration
	Direction       FlowDirection
	Golden          bool
	UnderlyingPrice float64
	DetectedAt      time.Time
}
