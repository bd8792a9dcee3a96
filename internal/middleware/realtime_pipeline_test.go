package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
)

type stubProc struct {
	mu    sync.Mutex
	seen  []*models.Trade
	fail  bool
	calls int
}

func (s *stubProc) Process(ctx context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return fmt.Errorf("downstream down")
	}
	s.seen = append(s.seen, t)
	return nil
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type noopMetrics struct{}

func (noopMetrics) RecordTradeProcessed(string)   {}
func (noopMetrics) RecordTradeSkipped(string)     {}
func (noopMetrics) RecordSignal(string)           {}
func (noopMetrics) RecordSweep(string)            {}
func (noopMetrics) RecordWhale(string)            {}
func (noopMetrics) RecordError(string)            {}
func (noopMetrics) RecordLatency(string, float64) {}
func (noopMetrics) RecordBufferSize(int)          {}

func validPipeTrade() *models.Trade {
	return &models.Trade{
		Contract:  models.NewContract("AAPL", 150, models.Call, "2026-01-16"),
		Timestamp: time.Now(),
		Price:     2.50,
		Size:      10,
		Venue:     "CBOE",
	}
}

func TestPipelineForwardsValidTrade(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, noopMetrics{})

	require.NoError(t, p.Process(context.Background(), validPipeTrade()))
	assert.Equal(t, 1, proc.count())
}

func TestPipelineRejectsInvalid(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, noopMetrics{})
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))

	bad := validPipeTrade()
	bad.Contract.Key.Underlying = ""
	assert.Error(t, p.Process(ctx, bad))

	bad = validPipeTrade()
	bad.Contract.Key.Strike = 0
	assert.Error(t, p.Process(ctx, bad))

	bad = validPipeTrade()
	bad.Contract.Key.Right = "X"
	assert.Error(t, p.Process(ctx, bad))

	bad = validPipeTrade()
	bad.Timestamp = time.Time{}
	assert.Error(t, p.Process(ctx, bad))

	assert.Equal(t, 0, proc.count())
}

func TestPipelineBurstPassesThrottleDropsAfter(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithMaxRPS(10), WithBurst(5))
	ctx := context.Background()

	// the first burst fits the bucket, the rest are silently shed
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Process(ctx, validPipeTrade()))
	}
	assert.GreaterOrEqual(t, proc.count(), 5)
	assert.Less(t, proc.count(), 20)
}

func TestPipelineThrottlePerContract(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithMaxRPS(10), WithBurst(1))
	ctx := context.Background()

	tr1 := validPipeTrade()
	tr2 := validPipeTrade()
	tr2.Contract = models.NewContract("TSLA", 250, models.Put, "2026-01-16")

	require.NoError(t, p.Process(ctx, tr1))
	require.NoError(t, p.Process(ctx, tr2))
	assert.Equal(t, 2, proc.count(), "different contracts have independent buckets")
}

func TestPipelineTransform(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithTransform(func(tr *models.Trade) *models.Trade {
		tr.Venue = "NORMALIZED"
		return tr
	}))

	require.NoError(t, p.Process(context.Background(), validPipeTrade()))
	require.Equal(t, 1, proc.count())
	assert.Equal(t, "NORMALIZED", proc.seen[0].Venue)
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{fail: true}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithBufferSize(4))

	err := p.Process(context.Background(), validPipeTrade())
	assert.Error(t, err)
	assert.Len(t, p.bufCh, 1)

	// recovery: the flush goroutine drains the buffer downstream
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.count() == 1 }, time.Second, 10*time.Millisecond)
}
