package usecase

import (
	"context"
	"time"

	"FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
	"FlowTrack/internal/services/accumulation"
	pkgcache "FlowTrack/pkg/cache"
)

// FlowQueries is the synchronous query surface over the pipeline state:
// recent signals, daily flows, patterns, levels, and stats.
type FlowQueries struct {
	detector   *FlowDetector
	store      domrepo.SignalStore
	cache      pkgcache.Service
	patternTTL time.Duration
}

func NewFlowQueries(detector *FlowDetector, store domrepo.SignalStore) *FlowQueries {
	return &FlowQueries{detector: detector, store: store, patternTTL: 30 * time.Second}
}

// WithCache shares pattern results across instances through a cache layer.
func (q *FlowQueries) WithCache(c pkgcache.Service, patternTTL time.Duration) *FlowQueries {
	q.cache = c
	if patternTTL > 0 {
		q.patternTTL = patternTTL
	}
	return q
}

// RecentSignals returns recent signals for a symbol, preferring the
// persistent store and falling back to the in-memory tracker window.
func (q *FlowQueries) RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.FlowSignal, error) {
	if q.store != nil {
		sigs, err := q.store.Recent(ctx, symbol, limit)
		if err == nil {
			return sigs, nil
		}
	}
	sigs := q.detector.Tracker().Signals(symbol, 0)
	if limit > 0 && len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

// Pattern recomputes the symbol's multi-day pattern; nil when none clears
// the detection bars. Results are cached briefly when a cache is wired.
func (q *FlowQueries) Pattern(symbol string) *models.AccumulationPattern {
	key := pkgcache.GenerateKey("pattern", symbol)
	if q.cache != nil {
		var p models.AccumulationPattern
		if err := q.cache.Get(context.Background(), key, &p); err == nil {
			return &p
		}
	}
	pat := q.detector.Tracker().Analyze(symbol)
	if pat != nil && q.cache != nil {
		_ = q.cache.Set(context.Background(), key, pat, q.patternTTL)
	}
	return pat
}

// DailyFlows returns the symbol's per-day aggregates for the last N days.
func (q *FlowQueries) DailyFlows(symbol string, days int) []*models.DailyFlow {
	return q.detector.Tracker().DailyFlows(symbol, days)
}

// Levels returns the symbol's cached technical levels.
func (q *FlowQueries) Levels(ctx context.Context, symbol string) models.TechnicalLevels {
	return q.detector.Levels().Levels(ctx, symbol)
}

// StatsSummary combines detection counters with tracker state.
type StatsSummary struct {
	Detection Stats                `json:"detection"`
	Tracking  accumulation.Summary `json:"tracking"`
}

// Stats reports processed/skipped/failed counters and tracker summary so
// operators can detect silent data loss.
func (q *FlowQueries) Stats() StatsSummary {
	return StatsSummary{
		Detection: q.detector.Stats(),
		Tracking:  q.detector.Tracker().Summarize(),
	}
}
