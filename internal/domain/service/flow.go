package service

import (
	"context"

	"FlowTrack/internal/domain/models"
)

// SweepScanner recognizes coordinated multi-venue execution from the
// recent-trade buffer.
type SweepScanner interface {
	Scan(t *models.Trade) (*models.SweepEvent, error)
}

// Classifier turns a raw trade or sweep into a classified FlowSignal.
type Classifier interface {
	ClassifyTrade(t *models.Trade, ctx ClassifyContext) *models.FlowSignal
	ClassifySweep(sw *models.SweepEvent, ctx ClassifyContext) *models.FlowSignal
	ClassifyChainEntry(e *models.ChainEntry, ctx ClassifyContext) *models.FlowSignal
}

// ClassifyContext carries the surrounding state a classification needs:
// volume history, technical levels, and recent same-symbol signals.
type ClassifyContext struct {
	AvgVolume    int64
	Volume       int64
	OpenInterest int64
	PrevOI       int64
	Levels       models.TechnicalLevels
	History      []*models.FlowSignal
}

// LevelProvider computes cached technical levels per symbol.
type LevelProvider interface {
	Levels(ctx context.Context, symbol string) models.TechnicalLevels
	NearSupport(levels models.TechnicalLevels, price float64) bool
	NearResistance(levels models.TechnicalLevels, price float64) bool
}

// FlowHistorian tracks multi-day flow per symbol.
type FlowHistorian interface {
	AddSignal(sig *models.FlowSignal)
	Analyze(symbol string) *models.AccumulationPattern
	DailyFlows(symbol string, days int) []*models.DailyFlow
	Signals(symbol string, days int) []*models.FlowSignal
}
