package accumulation

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
	applogger "FlowTrack/pkg/logger"
	"FlowTrack/pkg/util"
)

// Tracker aggregates classified signals per symbol per calendar day and
// infers multi-day accumulation/distribution/hedging patterns. Patterns
// are recomputed on demand from the retained daily buckets rather than
// incrementally updated, so partial updates can never drift.
type Tracker struct {
	cfg config.Detection
	l   *applogger.Logger
	now func() time.Time // injectable clock for tests

	mu       sync.RWMutex
	daily    map[string]map[string]*models.DailyFlow // symbol -> date -> bucket
	signals  map[string][]*models.FlowSignal
	patterns map[string]*models.AccumulationPattern
}

// NewTracker creates a tracker with the configured lookback window.
func NewTracker(cfg config.Detection, l *applogger.Logger) *Tracker {
	return &Tracker{
		cfg:      cfg,
		l:        l,
		now:      time.Now,
		daily:    make(map[string]map[string]*models.DailyFlow),
		signals:  make(map[string][]*models.FlowSignal),
		patterns: make(map[string]*models.AccumulationPattern),
	}
}

// SetClock overrides the clock, for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// AddSignal updates the DailyFlow bucket for the signal's symbol and day,
// then purges buckets older than lookback plus grace.
func (t *Tracker) AddSignal(sig *models.FlowSignal) {
	if sig == nil {
		return
	}
	symbol := sig.Symbol
	day := util.DayKey(sig.Timestamp)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.signals[symbol] = append(t.signals[symbol], sig)

	buckets, ok := t.daily[symbol]
	if !ok {
		buckets = make(map[string]*models.DailyFlow)
		t.daily[symbol] = buckets
	}
	df, ok := buckets[day]
	if !ok {
		df = &models.DailyFlow{Date: util.ParseDay(day), Symbol: symbol}
		buckets[day] = df
	}

	switch sig.Direction {
	case models.Bullish:
		df.BullishPremium += sig.Metrics.PremiumPaid
		df.BullishCount++
		df.BullishContracts += sig.Metrics.Contracts
	case models.Bearish:
		df.BearishPremium += sig.Metrics.PremiumPaid
		df.BearishCount++
		df.BearishContracts += sig.Metrics.Contracts
	default:
		df.NeutralPremium += sig.Metrics.PremiumPaid
		df.NeutralCount++
	}
	if sig.IsSweep {
		df.SweepCount++
		df.SweepPremium += sig.Metrics.PremiumPaid
	}

	t.cleanLocked(symbol)
}

// cleanLocked removes data beyond lookback+grace. Caller holds the lock.
func (t *Tracker) cleanLocked(symbol string) {
	cutoff := util.DayCutoff(t.now(), t.cfg.Accumulation.LookbackDays+t.cfg.Accumulation.GraceDays)

	for day := range t.daily[symbol] {
		if day < cutoff {
			delete(t.daily[symbol], day)
		}
	}

	sigs := t.signals[symbol]
	kept := sigs[:0]
	for _, s := range sigs {
		if util.DayKey(s.Timestamp) >= cutoff {
			kept = append(kept, s)
		}
	}
	t.signals[symbol] = kept
}

// Analyze walks the symbol's daily buckets over the lookback window and
// returns the inferred pattern, nil when no pattern clears the bars.
func (t *Tracker) Analyze(symbol string) *models.AccumulationPattern {
	t.mu.Lock()
	defer t.mu.Unlock()

	buckets := t.daily[symbol]
	if len(buckets) == 0 {
		return nil
	}

	cutoff := util.DayCutoff(t.now(), t.cfg.Accumulation.LookbackDays)
	days := make([]string, 0, len(buckets))
	for day := range buckets {
		if day >= cutoff {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil
	}
	sort.Strings(days)

	var (
		bullishDays, bearishDays, neutralDays int
		bullishPremium, bearishPremium        float64
		totalSignals                          int
		runBullish, runBearish                int
		maxRunBullish, maxRunBearish          int
	)

	netRatio := t.cfg.Accumulation.NetRatio
	for _, day := range days {
		df := buckets[day]
		totalSignals += df.TotalCount()

		switch df.NetDirection(netRatio) {
		case models.Bullish:
			bullishDays++
			runBullish++
			runBearish = 0
			if runBullish > maxRunBullish {
				maxRunBullish = runBullish
			}
		case models.Bearish:
			bearishDays++
			runBearish++
			runBullish = 0
			if runBearish > maxRunBearish {
				maxRunBearish = runBearish
			}
		default:
			neutralDays++
			runBullish = 0
			runBearish = 0
		}

		bullishPremium += df.BullishPremium
		bearishPremium += df.BearishPremium
	}

	patternType := models.Unknown
	description := ""
	confidence := 0.0
	totalPremium := bullishPremium + bearishPremium
	minRun := t.cfg.Accumulation.MinConsecutive
	minRatio := t.cfg.Accumulation.MinRatio

	switch {
	case maxRunBullish >= minRun && bullishPremium >= bearishPremium*minRatio:
		patternType = models.Accumulation
		description = fmt.Sprintf("Last %d trading days showed accumulation", maxRunBullish)
		confidence = runConfidence(maxRunBullish, bullishPremium, totalPremium)
	case maxRunBearish >= minRun && bearishPremium >= bullishPremium*minRatio:
		patternType = models.Distribution
		description = fmt.Sprintf("Last %d trading days showed distribution", maxRunBearish)
		confidence = runConfidence(maxRunBearish, bearishPremium, totalPremium)
	case totalPremium > 0:
		balance := math.Min(bullishPremium, bearishPremium) / math.Max(bullishPremium, bearishPremium)
		if balance > t.cfg.Accumulation.HedgingBalance {
			patternType = models.Hedging
			description = "Balanced call/put activity suggests hedging"
			confidence = 50 + balance*30
		}
	}

	if patternType == models.Unknown {
		return nil
	}

	pattern := &models.AccumulationPattern{
		Symbol:          symbol,
		PatternType:     patternType,
		StartDate:       util.ParseDay(days[0]),
		EndDate:         util.ParseDay(days[len(days)-1]),
		TotalPremium:    totalPremium,
		TotalSignals:    totalSignals,
		ConsecutiveDays: max(maxRunBullish, maxRunBearish),
		BullishDays:     bullishDays,
		BearishDays:     bearishDays,
		NeutralDays:     neutralDays,
		BullishPremium:  bullishPremium,
		BearishPremium:  bearishPremium,
		Confidence:      confidence,
		Description:     description,
	}

	t.patterns[symbol] = pattern
	if t.l != nil {
		t.l.Info("pattern detected",
			applogger.String("symbol", symbol),
			applogger.String("type", string(patternType)),
			applogger.Int("consecutive_days", pattern.ConsecutiveDays),
			applogger.Float64("confidence", confidence),
		)
	}
	return pattern
}

func runConfidence(run int, dominant, total float64) float64 {
	c := 50 + float64(run)*10
	if total > 0 {
		c += dominant / total * 30
	}
	return math.Min(100, c)
}

// DailyFlows returns the symbol's daily buckets for the last N days,
// sorted by date.
func (t *Tracker) DailyFlows(symbol string, days int) []*models.DailyFlow {
	if days <= 0 {
		days = t.cfg.Accumulation.LookbackDays
	}
	cutoff := util.DayCutoff(t.now(), days)

	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.DailyFlow, 0, len(t.daily[symbol]))
	for day, df := range t.daily[symbol] {
		if day >= cutoff {
			out = append(out, df)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Signals returns the symbol's raw signals for the last N days, newest
// first.
func (t *Tracker) Signals(symbol string, days int) []*models.FlowSignal {
	if days <= 0 {
		days = t.cfg.Accumulation.LookbackDays
	}
	cutoff := t.now().AddDate(0, 0, -days)

	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.FlowSignal, 0, len(t.signals[symbol]))
	for _, s := range t.signals[symbol] {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Pattern returns the cached pattern from the last Analyze call.
func (t *Tracker) Pattern(symbol string) *models.AccumulationPattern {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.patterns[symbol]
}

// Summary describes the tracker's current state.
type Summary struct {
	SymbolsTracked   int                 `json:"symbols_tracked"`
	PatternsDetected int                 `json:"patterns_detected"`
	ByPatternType    map[string][]string `json:"by_pattern_type"`
	TotalSignals     int                 `json:"total_signals"`
}

// Summarize reports all tracked symbols and detected patterns.
func (t *Tracker) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		SymbolsTracked:   len(t.daily),
		PatternsDetected: len(t.patterns),
		ByPatternType:    make(map[string][]string),
	}
	for _, sigs := range t.signals {
		s.TotalSignals += len(sigs)
	}
	for symbol, p := range t.patterns {
		key := string(p.PatternType)
		s.ByPatternType[key] = append(s.ByPatternType[key], symbol)
	}
	return s
}
