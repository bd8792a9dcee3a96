package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
)

func sweepTrade(venue string, price float64, size int64, spot float64) *models.Trade {
	return &models.Trade{
		Contract:        models.NewContract("TSLA", 250, models.Call, "2026-01-16"),
		Timestamp:       time.Now(),
		Price:           price,
		Size:            size,
		Venue:           venue,
		Bid:             price - 0.05,
		Ask:             price,
		UnderlyingPrice: spot,
		Side:            models.Buy,
	}
}

func TestSweepAcrossThreeVenues(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	// 3 venues x 100 contracts x $2.00 x 100 = $60K total
	var sw *models.SweepEvent
	for _, venue := range []string{"CBOE", "PHLX", "ISE"} {
		tr := sweepTrade(venue, 2.00, 100, 251)
		buf.Add(tr)
		var err error
		sw, err = det.Scan(tr)
		require.NoError(t, err)
	}

	require.NotNil(t, sw)
	assert.Equal(t, 3, sw.Exchanges)
	assert.InDelta(t, 60000, sw.TotalPremium, 0.01)
	assert.Equal(t, int64(300), sw.TotalContracts)
	assert.Equal(t, models.Bullish, sw.Direction)
	assert.False(t, sw.Golden)
}

func TestSweepSingleVenueNeverForms(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	for i := 0; i < 5; i++ {
		tr := sweepTrade("CBOE", 3.00, 200, 251)
		buf.Add(tr)
		sw, err := det.Scan(tr)
		require.NoError(t, err)
		assert.Nil(t, sw)
	}
}

func TestSweepBelowPremiumFloor(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	// 2 venues but only $4K total premium
	for _, venue := range []string{"CBOE", "PHLX"} {
		tr := sweepTrade(venue, 2.00, 10, 251)
		buf.Add(tr)
		sw, err := det.Scan(tr)
		require.NoError(t, err)
		assert.Nil(t, sw)
	}
}

func TestSweepDeduplicatedPerWindow(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	emitted := 0
	for _, venue := range []string{"CBOE", "PHLX", "ISE", "MIAX"} {
		tr := sweepTrade(venue, 2.00, 150, 251)
		buf.Add(tr)
		sw, err := det.Scan(tr)
		require.NoError(t, err)
		if sw != nil {
			emitted++
		}
	}
	assert.Equal(t, 1, emitted, "one sweep per contract per window")
}

func TestSweepStaleTradeExcluded(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	stale := sweepTrade("CBOE", 2.00, 200, 251)
	stale.Timestamp = time.Now().Add(-2 * time.Second)
	buf.Add(stale)

	fresh := sweepTrade("PHLX", 2.00, 200, 251)
	buf.Add(fresh)

	sw, err := det.Scan(fresh)
	require.NoError(t, err)
	assert.Nil(t, sw, "stale leg must not count toward the window")
}

func TestGoldenSweepNearMoney(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	// $150K premium, strike 250 vs spot 248 is within 5%
	var sw *models.SweepEvent
	for _, venue := range []string{"CBOE", "PHLX"} {
		tr := sweepTrade(venue, 5.00, 150, 248)
		buf.Add(tr)
		var err error
		sw, err = det.Scan(tr)
		require.NoError(t, err)
	}
	require.NotNil(t, sw)
	assert.True(t, sw.Golden)
}

func TestGoldenSweepFarStrike(t *testing.T) {
	cfg := config.DefaultDetection()
	buf := NewTradeBuffer()
	det := NewSweepDetector(cfg, buf, nil)

	// big premium but strike 250 vs spot 200 is 25% away
	var sw *models.SweepEvent
	for _, venue := range []string{"CBOE", "PHLX"} {
		tr := sweepTrade(venue, 5.00, 150, 200)
		buf.Add(tr)
		var err error
		sw, err = det.Scan(tr)
		require.NoError(t, err)
	}
	require.NotNil(t, sw)
	assert.False(t, sw.Golden)
}

func TestSweepDirectionMixed(t *testing.T) {
	trades := []*models.Trade{
		{Contract: models.NewContract("TSLA", 250, models.Call, "2026-01-16"), Side: models.Buy, Price: 2, Size: 100},
		{Contract: models.NewContract("TSLA", 250, models.Call, "2026-01-16"), Side: models.Sell, Price: 2, Size: 40},
	}
	assert.Equal(t, models.Bullish, sweepDirection(trades))

	trades[1].Size = 200
	assert.Equal(t, models.Bearish, sweepDirection(trades))
}

func TestSweepNilTrade(t *testing.T) {
	det := NewSweepDetector(config.DefaultDetection(), NewTradeBuffer(), nil)
	_, err := det.Scan(nil)
	assert.Error(t, err)
}
