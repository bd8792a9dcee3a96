package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/services/classify"
	"FlowTrack/internal/services/flow"
	"FlowTrack/internal/services/levels"
	"FlowTrack/pkg/config"
)

type nullMetrics struct{}

func (nullMetrics) RecordTradeProcessed(string)   {}
func (nullMetrics) RecordTradeSkipped(string)     {}
func (nullMetrics) RecordSignal(string)           {}
func (nullMetrics) RecordSweep(string)            {}
func (nullMetrics) RecordWhale(string)            {}
func (nullMetrics) RecordError(string)            {}
func (nullMetrics) RecordLatency(string, float64) {}
func (nullMetrics) RecordBufferSize(int)          {}

func newDetector(t *testing.T) *FlowDetector {
	t.Helper()
	cfg := config.DefaultDetection()
	buf := flow.NewTradeBuffer()
	return NewFlowDetector(
		cfg,
		buf,
		flow.NewVolumeTracker(cfg.Technical.LookbackDays),
		flow.NewSweepDetector(cfg, buf, nil),
		classify.New(cfg, nil),
		levels.NewCalculator(cfg, nil, nil),
		accumulation.NewTracker(cfg, nil),
		nullMetrics{},
		nil,
	)
}

func detTrade(venue string, price float64, size int64) *models.Trade {
	return &models.Trade{
		Contract:        models.NewContract("TSLA", 250, models.Call, "2026-01-16"),
		Timestamp:       time.Now(),
		Price:           price,
		Size:            size,
		Venue:           venue,
		Bid:             price - 0.05,
		Ask:             price,
		UnderlyingPrice: 251,
	}
}

func TestProcessSmallTradeNoSignal(t *testing.T) {
	d := newDetector(t)

	// $2.5K premium sits under every tracking floor
	require.NoError(t, d.Process(context.Background(), detTrade("CBOE", 2.50, 10)))

	s := d.Stats()
	assert.Equal(t, uint64(1), s.TradesProcessed)
	assert.Equal(t, uint64(0), s.SignalsDetected)
}

func TestProcessWhaleEmitsSignal(t *testing.T) {
	d := newDetector(t)

	var mu sync.Mutex
	var got []*models.FlowSignal
	d.Subscribe(func(sig *models.FlowSignal) {
		mu.Lock()
		got = append(got, sig)
		mu.Unlock()
	})
	d.Start(context.Background())

	// $300K premium crosses the whale bar
	require.NoError(t, d.Process(context.Background(), detTrade("CBOE", 10.00, 300)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	sig := got[0]
	mu.Unlock()
	assert.Equal(t, "TSLA", sig.Symbol)
	assert.Equal(t, models.PremiumWhale, sig.Metrics.PremiumClass)

	s := d.Stats()
	assert.Equal(t, uint64(1), s.WhalesDetected)
	assert.Equal(t, uint64(1), s.SignalsDetected)
}

func TestProcessSweepAcrossVenues(t *testing.T) {
	d := newDetector(t)

	for _, venue := range []string{"CBOE", "PHLX", "ISE"} {
		require.NoError(t, d.Process(context.Background(), detTrade(venue, 2.00, 100)))
	}

	s := d.Stats()
	assert.Equal(t, uint64(1), s.SweepsDetected)
	// per-venue legs are under the tracking floor, so only the sweep signal exists
	assert.Equal(t, uint64(1), s.SignalsDetected)

	flows := d.Tracker().DailyFlows("TSLA", 0)
	require.Len(t, flows, 1)
	assert.Equal(t, 1, flows[0].SweepCount)
}

func TestProcessNilTrade(t *testing.T) {
	d := newDetector(t)
	assert.Error(t, d.Process(context.Background(), nil))
	assert.Equal(t, uint64(1), d.Stats().TradesSkipped)
}

func TestProcessAfterShutdown(t *testing.T) {
	d := newDetector(t)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Error(t, d.Process(context.Background(), detTrade("CBOE", 2.50, 10)))
}

func TestScanChainEmitsUnusualVolume(t *testing.T) {
	d := newDetector(t)

	entries := []*models.ChainEntry{
		nil,
		{
			Contract:         models.NewContract("AMD", 150, models.Call, "2026-03-20"),
			Volume:           5000,
			AvgVolume:        1000,
			OpenInterest:     8000,
			PrevOpenInterest: 7900,
			Last:             3.00,
			Bid:              2.95,
			Ask:              3.05,
			UnderlyingPrice:  148,
		},
		{
			Contract:  models.NewContract("AMD", 200, models.Call, "2026-03-20"),
			Volume:    50,
			AvgVolume: 1000,
		},
	}

	out := d.ScanChain(context.Background(), entries)
	require.Len(t, out, 1)
	assert.Equal(t, models.SignalUnusualVolume, out[0].Type)
	assert.Equal(t, uint64(1), d.Stats().SignalsDetected)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := newDetector(t)

	var mu sync.Mutex
	calls := 0
	id := d.Subscribe(func(*models.FlowSignal) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	d.Unsubscribe(id)
	d.Start(context.Background())

	require.NoError(t, d.Process(context.Background(), detTrade("CBOE", 10.00, 300)))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestSubscriberPanicIsolated(t *testing.T) {
	d := newDetector(t)

	var mu sync.Mutex
	delivered := 0
	d.Subscribe(func(*models.FlowSignal) { panic("bad subscriber") })
	d.Subscribe(func(*models.FlowSignal) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	d.Start(context.Background())

	require.NoError(t, d.Process(context.Background(), detTrade("CBOE", 10.00, 300)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 1
	}, time.Second, 10*time.Millisecond)
}
