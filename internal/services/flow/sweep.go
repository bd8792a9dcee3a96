package flow

import (
	"fmt"
	"math"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
	applogger "FlowTrack/pkg/logger"
)

// seen-set safety valve; cleared wholesale when exceeded
const maxSeenSweeps = 10000

// SweepDetector recognizes a burst of fills for one contract across
// multiple venues within a short window as a single synthetic sweep.
// Deduplicated per contract per window.
type SweepDetector struct {
	cfg config.Detection
	buf *TradeBuffer
	l   *applogger.Logger

	mu   sync.Mutex
	seen map[models.SweepKey]struct{}
}

// NewSweepDetector creates a detector reading from the shared buffer.
func NewSweepDetector(cfg config.Detection, buf *TradeBuffer, l *applogger.Logger) *SweepDetector {
	return &SweepDetector{
		cfg:  cfg,
		buf:  buf,
		l:    l,
		seen: make(map[models.SweepKey]struct{}),
	}
}

// Scan checks whether the incoming trade completes a sweep. Returns nil
// when no sweep forms; at most one sweep is emitted per contract per
// window regardless of how many member trades arrive.
func (d *SweepDetector) Scan(t *models.Trade) (*models.SweepEvent, error) {
	if t == nil {
		return nil, fmt.Errorf("sweep scan: nil trade")
	}

	window := time.Duration(d.cfg.Sweep.WindowMs) * time.Millisecond
	recent := d.buf.Recent(t.Contract.Key, window)
	if len(recent) < 2 {
		return nil, nil
	}

	venues := make(map[string]struct{}, len(recent))
	var totalPremium float64
	var totalContracts int64
	var weighted float64
	first, last := recent[0].Timestamp, recent[0].Timestamp
	for _, r := range recent {
		venues[r.Venue] = struct{}{}
		totalPremium += r.Premium()
		totalContracts += r.Size
		weighted += r.Price * float64(r.Size)
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}

	if len(venues) < d.cfg.Sweep.MinExchanges || totalPremium < d.cfg.Sweep.MinPremium {
		return nil, nil
	}

	ms := t.Timestamp.UnixMilli()
	key := models.SweepKey{
		Contract:    t.Contract.Key,
		WindowStart: ms - ms%d.cfg.Sweep.WindowMs,
	}

	d.mu.Lock()
	if _, dup := d.seen[key]; dup {
		d.mu.Unlock()
		return nil, nil
	}
	if len(d.seen) >= maxSeenSweeps {
		d.seen = make(map[models.SweepKey]struct{})
	}
	d.seen[key] = struct{}{}
	d.mu.Unlock()

	var avgPrice float64
	if totalContracts > 0 {
		avgPrice = weighted / float64(totalContracts)
	}

	sw := &models.SweepEvent{
		Key:             key,
		Contract:        t.Contract,
		Trades:          recent,
		TotalContracts:  totalContracts,
		TotalPremium:    totalPremium,
		AvgPrice:        avgPrice,
		Exchanges:       len(venues),
		TimeSpan:        last.Sub(first),
		Direction:       sweepDirection(recent),
		Golden:          d.isGolden(t, totalPremium),
		UnderlyingPrice: t.UnderlyingPrice,
		DetectedAt:      time.Now(),
	}

	if d.l != nil {
		d.l.Info("sweep detected",
			applogger.String("contract", sw.Contract.Key.String()),
			applogger.Float64("premium", sw.TotalPremium),
			applogger.Int("exchanges", sw.Exchanges),
			applogger.Bool("golden", sw.Golden),
		)
	}
	return sw, nil
}

// isGolden applies the golden-sweep tie-break: big premium and a strike
// near the money.
func (d *SweepDetector) isGolden(t *models.Trade, totalPremium float64) bool {
	if totalPremium < d.cfg.Sweep.GoldenPremium {
		return false
	}
	if t.UnderlyingPrice <= 0 {
		return false
	}
	distPct := math.Abs(t.Contract.Key.Strike-t.UnderlyingPrice) / t.UnderlyingPrice * 100
	return distPct <= d.cfg.Sweep.GoldenStrikePct
}

// sweepDirection resolves the majority premium side under the call/put
// rule: bought calls and sold puts are bullish, the mirror is bearish.
func sweepDirection(trades []*models.Trade) models.FlowDirection {
	var bullish, bearish float64
	for _, t := range trades {
		p := t.Premium()
		switch {
		case t.Side == models.Buy && t.Contract.Key.Right == models.Call:
			bullish += p
		case t.Side == models.Sell && t.Contract.Key.Right == models.Put:
			bullish += p
		case t.Side == models.Buy && t.Contract.Key.Right == models.Put:
			bearish += p
		case t.Side == models.Sell && t.Contract.Key.Right == models.Call:
			bearish += p
		}
	}
	switch {
	case bullish > bearish:
		return models.Bullish
	case bearish > bullish:
		return models.Bearish
	default:
		return models.Neutral
	}
}
