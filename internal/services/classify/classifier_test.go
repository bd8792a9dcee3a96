package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/domain/service"
	"FlowTrack/pkg/config"
)

func whaleTrade(premiumDollars float64, strike, spot float64) *models.Trade {
	// size chosen so price*size*100 = premiumDollars at price 2.00
	size := int64(premiumDollars / (2.00 * 100))
	return &models.Trade{
		Contract:        models.NewContract("NVDA", strike, models.Call, "2026-06-19"),
		Timestamp:       time.Now(),
		Price:           2.00,
		Size:            size,
		Venue:           "CBOE",
		Bid:             1.95,
		Ask:             2.00,
		UnderlyingPrice: spot,
		Side:            models.Buy,
	}
}

func defaultCtx() service.ClassifyContext {
	return service.ClassifyContext{
		AvgVolume:    1000,
		Volume:       1200,
		OpenInterest: 5000,
		PrevOI:       4800,
	}
}

func TestPremiumClassTiers(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	assert.Equal(t, models.PremiumMegaWhale, c.PremiumClass(1_200_000))
	assert.Equal(t, models.PremiumWhale, c.PremiumClass(300_000))
	assert.Equal(t, models.PremiumNotable, c.PremiumClass(60_000))
	assert.Equal(t, models.PremiumTracked, c.PremiumClass(30_000))
	assert.Equal(t, models.PremiumIgnored, c.PremiumClass(10_000))
}

func TestClassifyTradeMegaWhale(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	tr := whaleTrade(1_200_000, 900, 890)
	sig := c.ClassifyTrade(tr, defaultCtx())
	require.NotNil(t, sig)

	assert.Equal(t, "NVDA", sig.Symbol)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.Equal(t, models.PremiumMegaWhale, sig.Metrics.PremiumClass)
	assert.Equal(t, float64(100), sig.Breakdown.Scores["premium_size"])
	assert.NotEmpty(t, sig.ID)
	assert.GreaterOrEqual(t, sig.ConvictionScore, 0.0)
	assert.LessOrEqual(t, sig.ConvictionScore, 100.0)
}

func TestClassifyTradeBlockType(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	big := whaleTrade(60_000, 900, 890) // 300 contracts, over the block floor
	sig := c.ClassifyTrade(big, defaultCtx())
	assert.Equal(t, models.SignalBlock, sig.Type)

	small := whaleTrade(60_000, 900, 890)
	small.Size = 50
	small.Price = 6.00
	sig = c.ClassifyTrade(small, defaultCtx())
	assert.Equal(t, models.SignalInstitutionalFlow, sig.Type)
}

func TestDirectionMapping(t *testing.T) {
	assert.Equal(t, models.Bullish, direction(models.Call, models.Buy))
	assert.Equal(t, models.Bullish, direction(models.Put, models.Sell))
	assert.Equal(t, models.Bearish, direction(models.Put, models.Buy))
	assert.Equal(t, models.Bearish, direction(models.Call, models.Sell))
	assert.Equal(t, models.Neutral, direction(models.Call, models.SideUnknown))
}

func TestClassifySweepGolden(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	sw := &models.SweepEvent{
		Contract:       models.NewContract("TSLA", 250, models.Call, "2026-01-16"),
		TotalPremium:   150_000,
		TotalContracts: 300,
		AvgPrice:       5.00,
		Exchanges:      3,
		Direction:      models.Bullish,
		Golden:         true,
		DetectedAt:     time.Now(),
		Trades: []*models.Trade{{
			Contract: models.NewContract("TSLA", 250, models.Call, "2026-01-16"),
			Price:    5.00, Size: 300, Bid: 4.95, Ask: 5.00,
		}},
		UnderlyingPrice: 248,
	}

	sig := c.ClassifySweep(sw, defaultCtx())
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalGoldenSweep, sig.Type)
	assert.True(t, sig.IsSweep)
	assert.Equal(t, 3, sig.SweepExchanges)
	assert.Contains(t, sig.Tags, "SWEEP")
	assert.Contains(t, sig.Tags, "MULTI_EXCHANGE")
	// sweep bonus plus the sub-score should lift conviction well above a
	// plain trade of the same premium
	plain := c.ClassifyTrade(whaleTrade(150_000, 250, 248), defaultCtx())
	assert.Greater(t, sig.ConvictionScore, plain.ConvictionScore)
}

func TestConvictionClamped(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	sw := &models.SweepEvent{
		Contract:       models.NewContract("SPY", 500, models.Call, "2026-06-19"),
		TotalPremium:   5_000_000,
		TotalContracts: 10_000,
		Exchanges:      6,
		Direction:      models.Bullish,
		Golden:         true,
		DetectedAt:     time.Now(),
		Trades: []*models.Trade{{
			Contract: models.NewContract("SPY", 500, models.Call, "2026-06-19"),
			Price:    5.00, Size: 10_000, Bid: 4.95, Ask: 5.00,
		}},
		UnderlyingPrice: 498,
	}
	cctx := defaultCtx()
	cctx.Volume = 50_000 // 50x average
	cctx.PrevOI = 2000   // +150% OI

	sig := c.ClassifySweep(sw, cctx)
	assert.LessOrEqual(t, sig.ConvictionScore, 100.0)
	assert.Equal(t, models.ConvictionHigh, sig.ConvictionLevel)
}

func TestConvictionPenalties(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	tr := whaleTrade(60_000, 900, 700) // 28% OTM
	tr.Bid = 1.00
	tr.Ask = 3.00 // 100% spread
	cctx := defaultCtx()
	cctx.OpenInterest = 100 // under the liquidity floor
	cctx.PrevOI = 100

	sig := c.ClassifyTrade(tr, cctx)
	assert.Equal(t, -10.0, sig.Breakdown.Penalties["wide_spread"])
	assert.Equal(t, -15.0, sig.Breakdown.Penalties["low_liquidity"])
	assert.Equal(t, -5.0, sig.Breakdown.Penalties["far_otm"])
	assert.GreaterOrEqual(t, sig.ConvictionScore, 0.0)
}

func TestPositioningFromHistory(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	history := make([]*models.FlowSignal, 0, 7)
	for i := 0; i < 7; i++ {
		history = append(history, &models.FlowSignal{
			Timestamp: time.Now().AddDate(0, 0, -i),
			Direction: models.Bullish,
			Metrics:   models.FlowMetrics{PremiumPaid: 100_000},
		})
	}

	sig := c.ClassifyTrade(whaleTrade(300_000, 900, 890), service.ClassifyContext{
		AvgVolume: 1000, Volume: 1200, OpenInterest: 5000, PrevOI: 4800,
		History: history,
	})
	assert.Equal(t, models.Accumulation, sig.Positioning)
	assert.Equal(t, float64(100), sig.Breakdown.Scores["multi_day_pattern"])
}

func TestPositioningSingleWhale(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	sig := c.ClassifyTrade(whaleTrade(300_000, 900, 890), defaultCtx())
	assert.Equal(t, models.Accumulation, sig.Positioning)

	small := c.ClassifyTrade(whaleTrade(60_000, 900, 890), defaultCtx())
	assert.Equal(t, models.Speculative, small.Positioning)
}

func TestPriceTargetCall(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	sig := &models.FlowSignal{
		Direction:       models.Bullish,
		UnderlyingPrice: 100,
		Option: &models.OptionDetails{
			Type: models.Call, Strike: 100, Mid: 4.00,
		},
	}
	// breakeven 104, target 104 + 2 = 106
	assert.Equal(t, 106.0, c.priceTarget(sig))
}

func TestPriceTargetNoOption(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	up := &models.FlowSignal{Direction: models.Bullish, UnderlyingPrice: 200}
	assert.Equal(t, 220.0, c.priceTarget(up))
	down := &models.FlowSignal{Direction: models.Bearish, UnderlyingPrice: 200}
	assert.Equal(t, 180.0, c.priceTarget(down))
}

func TestClassifyChainEntryUnusualVolume(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	e := &models.ChainEntry{
		Contract:         models.NewContract("AMD", 150, models.Call, "2026-03-20"),
		Volume:           5000,
		AvgVolume:        1000,
		OpenInterest:     8000,
		PrevOpenInterest: 7900,
		Last:             3.00,
		Bid:              2.95,
		Ask:              3.05,
		UnderlyingPrice:  148,
	}

	sig := c.ClassifyChainEntry(e, service.ClassifyContext{})
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalUnusualVolume, sig.Type)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.Contains(t, sig.Tags, "EXTREME_VOLUME")
}

func TestClassifyChainEntryQuiet(t *testing.T) {
	c := New(config.DefaultDetection(), nil)

	e := &models.ChainEntry{
		Contract:         models.NewContract("AMD", 150, models.Call, "2026-03-20"),
		Volume:           900,
		AvgVolume:        1000,
		OpenInterest:     8000,
		PrevOpenInterest: 7900,
	}
	assert.Nil(t, c.ClassifyChainEntry(e, service.ClassifyContext{}))
}

func TestSideInferrerOverride(t *testing.T) {
	c := New(config.DefaultDetection(), nil)
	c.SetSideInferrer(func(price, bid, ask float64) models.TradeSide {
		return models.Sell
	})

	tr := whaleTrade(60_000, 900, 890)
	tr.Side = models.SideUnknown
	sig := c.ClassifyTrade(tr, defaultCtx())
	assert.Equal(t, models.Bearish, sig.Direction)
}

func TestTagsOrdering(t *testing.T) {
	sig := &models.FlowSignal{
		Type:            models.SignalSweep,
		Direction:       models.Bullish,
		ConvictionLevel: models.ConvictionHigh,
		IsSweep:         true,
		SweepExchanges:  4,
		Sector:          "Technology",
		Metrics: models.FlowMetrics{
			PremiumClass: models.PremiumWhale,
			VolumeRatio:  6,
			OIChangePct:  60,
		},
	}
	tags := Tags(sig)
	assert.Equal(t, []string{
		"WHALE", "SWEEP", "BULLISH", "HIGH_CONVICTION",
		"SWEEP", "MULTI_EXCHANGE", "EXTREME_VOLUME", "HIGH_OI_CHANGE",
		"TECHNOLOGY",
	}, tags)
}
