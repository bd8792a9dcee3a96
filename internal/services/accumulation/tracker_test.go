package accumulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
)

func fixedClock() (func() time.Time, time.Time) {
	now := time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, now
}

func dirSignal(symbol string, dir models.FlowDirection, premium float64, ts time.Time) *models.FlowSignal {
	return &models.FlowSignal{
		ID:        models.NewSignalID(),
		Timestamp: ts,
		Symbol:    symbol,
		Direction: dir,
		Metrics:   models.FlowMetrics{PremiumPaid: premium, Contracts: 100},
	}
}

func TestAnalyzeEmptySymbol(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	assert.Nil(t, tr.Analyze("AAPL"))
}

func TestAnalyzeShortRunNoPattern(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	// only two consecutive bullish days, below the run floor
	for i := 0; i < 2; i++ {
		tr.AddSignal(dirSignal("AAPL", models.Bullish, 100_000, now.AddDate(0, 0, -i)))
	}
	assert.Nil(t, tr.Analyze("AAPL"))
}

func TestAnalyzeBullishAccumulation(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	// 5 consecutive bullish days with 3x the bearish premium
	for i := 0; i < 5; i++ {
		day := now.AddDate(0, 0, -i)
		tr.AddSignal(dirSignal("AAPL", models.Bullish, 300_000, day))
		tr.AddSignal(dirSignal("AAPL", models.Bearish, 50_000, day))
	}

	pat := tr.Analyze("AAPL")
	require.NotNil(t, pat)
	assert.Equal(t, models.Accumulation, pat.PatternType)
	assert.Equal(t, 5, pat.ConsecutiveDays)
	assert.Equal(t, 5, pat.BullishDays)
	assert.Equal(t, 0, pat.BearishDays)
	assert.InDelta(t, 1_750_000, pat.TotalPremium, 0.01)
	assert.Greater(t, pat.Confidence, 50.0)
	assert.LessOrEqual(t, pat.Confidence, 100.0)

	// cached copy from the last Analyze
	assert.Equal(t, pat, tr.Pattern("AAPL"))
}

func TestAnalyzeDistribution(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	for i := 0; i < 4; i++ {
		tr.AddSignal(dirSignal("TSLA", models.Bearish, 400_000, now.AddDate(0, 0, -i)))
	}

	pat := tr.Analyze("TSLA")
	require.NotNil(t, pat)
	assert.Equal(t, models.Distribution, pat.PatternType)
	assert.Equal(t, 4, pat.ConsecutiveDays)
}

func TestAnalyzeHedging(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	// near-balanced premium on both sides, alternating days break any run
	for i := 0; i < 4; i++ {
		day := now.AddDate(0, 0, -i)
		tr.AddSignal(dirSignal("SPY", models.Bullish, 200_000, day))
		tr.AddSignal(dirSignal("SPY", models.Bearish, 180_000, day))
	}

	pat := tr.Analyze("SPY")
	require.NotNil(t, pat)
	assert.Equal(t, models.Hedging, pat.PatternType)
}

func TestInterruptedRunResets(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.Accumulation.LookbackDays = 10
	tr := NewTracker(cfg, nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	// bullish, bullish, bearish, bullish, bullish: longest run is 2
	dirs := []models.FlowDirection{
		models.Bullish, models.Bullish, models.Bearish, models.Bullish, models.Bullish,
	}
	for i, d := range dirs {
		tr.AddSignal(dirSignal("NVDA", d, 500_000, now.AddDate(0, 0, -(len(dirs)-1-i))))
	}
	assert.Nil(t, tr.Analyze("NVDA"))
}

func TestOldSignalsEvicted(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	tr.AddSignal(dirSignal("AAPL", models.Bullish, 100_000, now.AddDate(0, 0, -30)))
	tr.AddSignal(dirSignal("AAPL", models.Bullish, 100_000, now))

	flows := tr.DailyFlows("AAPL", 0)
	require.Len(t, flows, 1)
	assert.Equal(t, 1, flows[0].BullishCount)
}

func TestDailyFlowAggregation(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	sweep := dirSignal("AAPL", models.Bullish, 75_000, now)
	sweep.IsSweep = true
	tr.AddSignal(sweep)
	tr.AddSignal(dirSignal("AAPL", models.Bearish, 60_000, now))
	tr.AddSignal(dirSignal("AAPL", models.Neutral, 30_000, now))

	flows := tr.DailyFlows("AAPL", 0)
	require.Len(t, flows, 1)
	df := flows[0]
	assert.Equal(t, 75_000.0, df.BullishPremium)
	assert.Equal(t, 60_000.0, df.BearishPremium)
	assert.Equal(t, 30_000.0, df.NeutralPremium)
	assert.Equal(t, 1, df.SweepCount)
	assert.Equal(t, 75_000.0, df.SweepPremium)
	assert.Equal(t, 3, df.TotalCount())
}

func TestSignalsNewestFirst(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	tr.AddSignal(dirSignal("AAPL", models.Bullish, 100_000, now.AddDate(0, 0, -2)))
	tr.AddSignal(dirSignal("AAPL", models.Bullish, 100_000, now))

	sigs := tr.Signals("AAPL", 0)
	require.Len(t, sigs, 2)
	assert.True(t, sigs[0].Timestamp.After(sigs[1].Timestamp))
}

func TestSummarize(t *testing.T) {
	tr := NewTracker(config.DefaultDetection(), nil)
	clock, now := fixedClock()
	tr.SetClock(clock)

	for i := 0; i < 4; i++ {
		tr.AddSignal(dirSignal("TSLA", models.Bearish, 400_000, now.AddDate(0, 0, -i)))
	}
	require.NotNil(t, tr.Analyze("TSLA"))

	s := tr.Summarize()
	assert.Equal(t, 1, s.SymbolsTracked)
	assert.Equal(t, 1, s.PatternsDetected)
	assert.Equal(t, 4, s.TotalSignals)
	assert.Equal(t, []string{"TSLA"}, s.ByPatternType[string(models.Distribution)])
}
