package repository

import (
	"context"

	"FlowTrack/internal/domain/models"
)

// TradeStream is the upstream feed of option executions.
type TradeStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarProvider supplies historical daily bars for technical levels.
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, lookbackDays int) ([]models.Bar, error)
}

// SignalPublisher pushes emitted signals to a downstream transport.
type SignalPublisher interface {
	Publish(ctx context.Context, sig *models.FlowSignal) error
	PublishBatch(ctx context.Context, sigs []*models.FlowSignal) error
	Close() error
}

// SignalStore persists and queries emitted signals.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, sig *models.FlowSignal) error
	StoreBatch(ctx context.Context, sigs []*models.FlowSignal) error
	Recent(ctx context.Context, symbol string, limit int) ([]*models.FlowSignal, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordTradeProcessed(symbol string)
	RecordTradeSkipped(reason string)
	RecordSignal(signalType string)
	RecordSweep(symbol string)
	RecordWhale(symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordBufferSize(n int)
}
