package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContractKeyString(t *testing.T) {
	c := NewContract("AAPL", 150, Call, "2026-01-16")
	assert.Equal(t, "AAPL_150.00_C_2026-01-16", c.Key.String())
	assert.Equal(t, 100, c.Multiplier)
}

func TestContractKeyComparable(t *testing.T) {
	a := NewContract("AAPL", 150, Call, "2026-01-16").Key
	b := NewContract("AAPL", 150, Call, "2026-01-16").Key
	m := map[ContractKey]int{a: 1}
	assert.Equal(t, 1, m[b])
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewContract("AAPL", 150, Call, "2026-01-16")
	assert.Equal(t, 15, c.DaysToExpiry(now))

	past := NewContract("AAPL", 150, Call, "2020-01-17")
	assert.Equal(t, 0, past.DaysToExpiry(now))

	bad := NewContract("AAPL", 150, Call, "not-a-date")
	assert.Equal(t, 0, bad.DaysToExpiry(now))
}

func TestTradePremium(t *testing.T) {
	tr := &Trade{
		Contract: NewContract("AAPL", 150, Call, "2026-01-16"),
		Price:    2.50,
		Size:     40,
	}
	assert.Equal(t, 10_000.0, tr.Premium())
}

func TestInferSide(t *testing.T) {
	assert.Equal(t, Buy, InferSide(2.00, 1.90, 2.00))  // at the ask
	assert.Equal(t, Sell, InferSide(1.90, 1.90, 2.00)) // at the bid
	assert.Equal(t, Buy, InferSide(1.97, 1.90, 2.00))  // above mid
	assert.Equal(t, Sell, InferSide(1.93, 1.90, 2.00)) // below mid
	assert.Equal(t, SideUnknown, InferSide(2.00, 0, 2.00))
	assert.Equal(t, SideUnknown, InferSide(2.00, 2.10, 2.00)) // crossed quote
}

func TestFlowMetricsRatios(t *testing.T) {
	m := NewFlowMetrics(100_000, 500, 3000, 1000, 6000, 4000)
	assert.Equal(t, 3.0, m.VolumeRatio)
	assert.Equal(t, 50.0, m.OIChangePct)

	zero := NewFlowMetrics(100_000, 500, 3000, 0, 6000, 0)
	assert.Equal(t, 0.0, zero.VolumeRatio)
	assert.Equal(t, 0.0, zero.OIChangePct)
}

func TestSpreadPct(t *testing.T) {
	o := &OptionDetails{Bid: 1.90, Ask: 2.10, Mid: 2.00}
	assert.Equal(t, 10.0, o.SpreadPct())

	unusable := &OptionDetails{Bid: 0, Ask: 2.00, Mid: 0}
	assert.Equal(t, 100.0, unusable.SpreadPct())
}

func TestDailyFlowNetDirection(t *testing.T) {
	df := &DailyFlow{BullishPremium: 300_000, BearishPremium: 100_000}
	assert.Equal(t, Bullish, df.NetDirection(1.5))

	balanced := &DailyFlow{BullishPremium: 120_000, BearishPremium: 100_000}
	assert.Equal(t, Neutral, balanced.NetDirection(1.5))

	bearish := &DailyFlow{BullishPremium: 50_000, BearishPremium: 200_000}
	assert.Equal(t, Bearish, bearish.NetDirection(1.5))
}

func TestChainEntryRatios(t *testing.T) {
	e := &ChainEntry{Volume: 5000, AvgVolume: 1000, OpenInterest: 6000, PrevOpenInterest: 4000}
	assert.Equal(t, 5.0, e.VolumeRatio())
	assert.Equal(t, 50.0, e.OIChangePct())

	e = &ChainEntry{Volume: 5000}
	assert.Equal(t, 0.0, e.VolumeRatio())
	assert.Equal(t, 0.0, e.OIChangePct())
}

func TestNewSignalID(t *testing.T) {
	id := NewSignalID()
	assert.Len(t, id, 8)
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotEqual(t, NewSignalID(), NewSignalID())
}

func TestTechnicalLevelsIsZero(t *testing.T) {
	assert.True(t, TechnicalLevels{CalculatedAt: time.Now()}.IsZero())
	assert.False(t, TechnicalLevels{Pivot: 100}.IsZero())
}
