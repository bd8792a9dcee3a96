package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"
	domsvc "FlowTrack/internal/domain/service"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/services/classify"
	"FlowTrack/internal/services/flow"
	"FlowTrack/internal/services/levels"
	"FlowTrack/pkg/config"
	applogger "FlowTrack/pkg/logger"
)

// evict the buffer every N processed trades
const evictEvery = 100

// Stats are the orchestrator's detection counters.
type Stats struct {
	TradesProcessed uint64 `json:"trades_processed"`
	TradesSkipped   uint64 `json:"trades_skipped"`
	TradesFailed    uint64 `json:"trades_failed"`
	SignalsDetected uint64 `json:"signals_detected"`
	SweepsDetected  uint64 `json:"sweeps_detected"`
	WhalesDetected  uint64 `json:"whales_detected"`
}

// FlowDetector wires ingestion, sweep and whale checks, and
// classification; it exposes a subscribe/emit interface and owns the
// detection statistics. A processing error for one trade never halts the
// pipeline for subsequent trades.
type FlowDetector struct {
	cfg     config.Detection
	buf     *flow.TradeBuffer
	vol     *flow.VolumeTracker
	sweeps  *flow.SweepDetector
	cls     *classify.Classifier
	lvl     *levels.Calculator
	acc     *accumulation.Tracker
	metrics drepo.Metrics
	l       *applogger.Logger

	processed atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
	signals   atomic.Uint64
	sweepsN   atomic.Uint64
	whales    atomic.Uint64

	subMu   sync.RWMutex
	subs    map[int]func(*models.FlowSignal)
	nextSub int

	emitCh  chan *models.FlowSignal
	stopCh  chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	started bool
	mu      sync.Mutex
}

// NewFlowDetector assembles the detection pipeline.
func NewFlowDetector(
	cfg config.Detection,
	buf *flow.TradeBuffer,
	vol *flow.VolumeTracker,
	sweeps *flow.SweepDetector,
	cls *classify.Classifier,
	lvl *levels.Calculator,
	acc *accumulation.Tracker,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *FlowDetector {
	return &FlowDetector{
		cfg:     cfg,
		buf:     buf,
		vol:     vol,
		sweeps:  sweeps,
		cls:     cls,
		lvl:     lvl,
		acc:     acc,
		metrics: metrics,
		l:       l,
		subs:    make(map[int]func(*models.FlowSignal)),
		emitCh:  make(chan *models.FlowSignal, 1024),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the subscriber dispatch loop. Emission is
// fire-and-forget relative to ingestion: a slow subscriber never blocks
// trade processing.
func (d *FlowDetector) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go d.dispatch(ctx)
}

func (d *FlowDetector) dispatch(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			// drain what was already emitted
			for {
				select {
				case sig := <-d.emitCh:
					d.deliver(sig)
				default:
					return
				}
			}
		case sig := <-d.emitCh:
			d.deliver(sig)
		}
	}
}

// deliver invokes every subscriber, isolating panics per subscriber.
func (d *FlowDetector) deliver(sig *models.FlowSignal) {
	d.subMu.RLock()
	fns := make([]func(*models.FlowSignal), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.metrics.RecordError("subscriber_panic")
					if d.l != nil {
						d.l.Error("subscriber panicked", applogger.Any("panic", r))
					}
				}
			}()
			fn(sig)
		}()
	}
}

// Subscribe registers a signal observer and returns its handle.
func (d *FlowDetector) Subscribe(fn func(*models.FlowSignal)) int {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	d.nextSub++
	d.subs[d.nextSub] = fn
	return d.nextSub
}

// Unsubscribe removes an observer by handle.
func (d *FlowDetector) Unsubscribe(id int) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	delete(d.subs, id)
}

// Process runs one trade through buffering, sweep detection, and
// classification. Errors are isolated at the per-trade boundary.
func (d *FlowDetector) Process(ctx context.Context, t *models.Trade) (err error) {
	if d.stopped.Load() {
		d.skipped.Add(1)
		return fmt.Errorf("detector stopped")
	}
	if t == nil {
		d.skipped.Add(1)
		d.metrics.RecordTradeSkipped("nil_trade")
		return fmt.Errorf("trade is nil")
	}

	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.metrics.RecordError("process_panic")
			if d.l != nil {
				d.l.Error("trade processing panicked",
					applogger.String("contract", t.Contract.Key.String()),
					applogger.Any("panic", r),
				)
			}
			err = fmt.Errorf("process trade: %v", r)
		}
	}()

	start := time.Now()

	if t.Side == "" || t.Side == models.SideUnknown {
		t.Side = models.InferSide(t.Price, t.Bid, t.Ask)
	}

	d.buf.Add(t)
	d.vol.Record(t.Contract.Key.Underlying, t.Size, t.Timestamp)

	n := d.processed.Add(1)
	d.metrics.RecordTradeProcessed(t.Contract.Key.Underlying)
	if n%evictEvery == 0 {
		d.buf.EvictOlderThan(time.Duration(d.cfg.Sweep.BufferMaxAge) * time.Second)
		d.metrics.RecordBufferSize(d.buf.Size())
	}

	symbol := t.Contract.Key.Underlying
	cctx := d.classifyContext(ctx, t, symbol)

	// sweep formation errors are isolated; the trade itself is already ingested
	sw, serr := d.sweeps.Scan(t)
	if serr != nil {
		d.metrics.RecordError("sweep_scan")
		if d.l != nil {
			d.l.Warn("sweep scan failed",
				applogger.String("contract", t.Contract.Key.String()),
				applogger.Error(serr),
			)
		}
	}
	if sw != nil {
		d.sweepsN.Add(1)
		d.metrics.RecordSweep(symbol)
		d.emit(d.cls.ClassifySweep(sw, cctx))
	}

	if premium := t.Premium(); premium >= d.cfg.Premium.TrackingMin {
		if premium >= d.cfg.Premium.Whale {
			d.whales.Add(1)
			d.metrics.RecordWhale(symbol)
		}
		d.emit(d.cls.ClassifyTrade(t, cctx))
	}

	d.metrics.RecordLatency("detect", time.Since(start).Seconds())
	return nil
}

// ScanChain runs the unusual volume / open interest scan over an option
// chain snapshot, emitting any resulting signals.
func (d *FlowDetector) ScanChain(ctx context.Context, entries []*models.ChainEntry) []*models.FlowSignal {
	var out []*models.FlowSignal
	for _, e := range entries {
		if e == nil {
			continue
		}
		symbol := e.Contract.Key.Underlying
		cctx := d.chainContext(ctx, e, symbol)
		if sig := d.cls.ClassifyChainEntry(e, cctx); sig != nil {
			d.emit(sig)
			out = append(out, sig)
		}
	}
	return out
}

func (d *FlowDetector) classifyContext(ctx context.Context, t *models.Trade, symbol string) domsvc.ClassifyContext {
	now := t.Timestamp
	return domsvc.ClassifyContext{
		Volume:    d.vol.TodayVolume(symbol, now),
		AvgVolume: d.vol.AvgVolume(symbol, now),
		Levels:    d.lvl.Levels(ctx, symbol),
		History:   d.acc.Signals(symbol, d.cfg.Accumulation.LookbackDays),
	}
}

func (d *FlowDetector) chainContext(ctx context.Context, e *models.ChainEntry, symbol string) domsvc.ClassifyContext {
	return domsvc.ClassifyContext{
		Volume:       e.Volume,
		AvgVolume:    e.AvgVolume,
		OpenInterest: e.OpenInterest,
		PrevOI:       e.PrevOpenInterest,
		Levels:       d.lvl.Levels(ctx, symbol),
		History:      d.acc.Signals(symbol, d.cfg.Accumulation.LookbackDays),
	}
}

// emit records the signal, updates multi-day tracking, and queues it for
// subscriber dispatch without blocking ingestion.
func (d *FlowDetector) emit(sig *models.FlowSignal) {
	if sig == nil {
		return
	}
	d.signals.Add(1)
	d.metrics.RecordSignal(string(sig.Type))
	d.acc.AddSignal(sig)

	select {
	case d.emitCh <- sig:
	default:
		d.metrics.RecordError("emit_buffer_full")
	}
}

// Stats returns a snapshot of the detection counters.
func (d *FlowDetector) Stats() Stats {
	return Stats{
		TradesProcessed: d.processed.Load(),
		TradesSkipped:   d.skipped.Load(),
		TradesFailed:    d.failed.Load(),
		SignalsDetected: d.signals.Load(),
		SweepsDetected:  d.sweepsN.Load(),
		WhalesDetected:  d.whales.Load(),
	}
}

// Tracker exposes the multi-day flow history for the query surface.
func (d *FlowDetector) Tracker() *accumulation.Tracker { return d.acc }

// Levels exposes the technical level calculator for the query surface.
func (d *FlowDetector) Levels() *levels.Calculator { return d.lvl }

// Shutdown stops accepting trades, drains in-flight emission, and
// releases subscriber resources. Already-emitted signals are delivered.
func (d *FlowDetector) Shutdown(ctx context.Context) error {
	if d.stopped.Swap(true) {
		return nil
	}
	close(d.stopCh)
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
