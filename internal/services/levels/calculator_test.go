package levels

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
)

type stubBars struct {
	bars []models.Bar
	err  error
}

func (s *stubBars) DailyBars(ctx context.Context, symbol string, lookbackDays int) ([]models.Bar, error) {
	return s.bars, s.err
}

func flatBars(n int, high, low, close float64) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{
			Date: base.AddDate(0, 0, i), Symbol: "AAPL",
			Open: close, High: high, Low: low, Close: close, Volume: 1_000_000,
		}
	}
	return bars
}

func TestComputePivotPoints(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), nil, nil)

	lv := c.Compute(flatBars(10, 110, 90, 100))
	assert.Equal(t, 100.0, lv.Pivot)
	assert.Equal(t, 110.0, lv.Resistance1)
	assert.Equal(t, 90.0, lv.Support1)
	assert.Equal(t, 120.0, lv.Resistance2)
	assert.Equal(t, 80.0, lv.Support2)
	assert.False(t, lv.IsZero())
	assert.Equal(t, 10, lv.LookbackDays)
}

func TestComputeTooFewBars(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), nil, nil)

	lv := c.Compute(flatBars(4, 110, 90, 100))
	assert.True(t, lv.IsZero())
	assert.False(t, lv.CalculatedAt.IsZero())
}

func TestComputeClusteredExtrema(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), nil, nil)

	// two local minima near 95 inside a flat band, current close 100
	bars := flatBars(11, 104, 98, 100)
	bars[3].Low = 95.0
	bars[7].Low = 95.3
	lv := c.Compute(bars)

	// the clustered support sits near 95, within the 1% tolerance band
	assert.InDelta(t, 95.15, lv.Floor, 0.5)
}

func TestLevelsProviderError(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), &stubBars{err: fmt.Errorf("boom")}, nil)

	lv := c.Levels(context.Background(), "AAPL")
	assert.True(t, lv.IsZero())
	assert.False(t, lv.CalculatedAt.IsZero())
}

func TestLevelsCachedPerSymbol(t *testing.T) {
	stub := &stubBars{bars: flatBars(10, 110, 90, 100)}
	c := NewCalculator(config.DefaultDetection(), stub, nil)

	first := c.Levels(context.Background(), "AAPL")
	stub.bars = flatBars(10, 200, 180, 190)
	second := c.Levels(context.Background(), "AAPL")
	assert.Equal(t, first.Pivot, second.Pivot, "second call must hit the cache")

	c.Invalidate("AAPL")
	third := c.Levels(context.Background(), "AAPL")
	assert.Equal(t, 190.0, third.Pivot)
}

func TestFromPriceFallback(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), nil, nil)

	lv := c.FromPrice(100, 0, 0)
	assert.Equal(t, 105.0, lv.Resistance)
	assert.Equal(t, 95.0, lv.Floor)
	assert.Equal(t, 100.0, lv.Pivot)

	ranged := c.FromPrice(100, 150, 50)
	assert.Equal(t, 110.0, ranged.Resistance)
	assert.Equal(t, 90.0, ranged.Floor)
}

func TestNearSupportResistance(t *testing.T) {
	c := NewCalculator(config.DefaultDetection(), nil, nil)
	lv := models.TechnicalLevels{Floor: 100, Resistance: 120}

	assert.True(t, c.NearSupport(lv, 101))
	assert.False(t, c.NearSupport(lv, 105))
	assert.True(t, c.NearResistance(lv, 119))
	assert.False(t, c.NearResistance(lv, 110))
	assert.False(t, c.NearSupport(models.TechnicalLevels{}, 100))
}

func TestNearestLevel(t *testing.T) {
	lv := models.TechnicalLevels{
		Floor: 95, Resistance: 110, Pivot: 100,
		Support1: 95, Support2: 90, Resistance1: 110, Resistance2: 115,
	}
	name, value, distPct := NearestLevel(lv, 99)
	assert.Equal(t, "pivot", name)
	assert.Equal(t, 100.0, value)
	assert.InDelta(t, 1.01, distPct, 0.01)

	name, _, _ = NearestLevel(models.TechnicalLevels{}, 99)
	assert.Equal(t, "none", name)
}

func TestClusterLevels(t *testing.T) {
	out := clusterLevels([]float64{100, 100.5, 100.8, 150}, 1.0, 2)
	require.Len(t, out, 1)
	assert.InDelta(t, 100.43, out[0].price, 0.01)
	assert.Equal(t, 3, out[0].touches)

	assert.Empty(t, clusterLevels(nil, 1.0, 2))
	assert.Empty(t, clusterLevels([]float64{100, 150}, 1.0, 2))
}
