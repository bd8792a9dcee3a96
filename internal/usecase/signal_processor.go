package usecase

import (
	"context"
	"fmt"
	"time"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"
)

// SignalProcessor routes emitted signals to the configured backend.
type SignalProcessor struct {
	pub     drepo.SignalPublisher
	store   drepo.SignalStore
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewSignalProcessor creates a new SignalProcessor instance.
func NewSignalProcessor(
	pub drepo.SignalPublisher,
	store drepo.SignalStore,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *SignalProcessor {
	return &SignalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single signal to the configured backend.
func (p *SignalProcessor) Process(ctx context.Context, sig *models.FlowSignal) error {
	if sig == nil {
		return fmt.Errorf("signal is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, sig)
	case "clickhouse":
		err = p.store.Store(ctx, sig)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process signal: %w", err)
	}

	p.metrics.RecordSignal(string(sig.Type))
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple signals in a batch.
func (p *SignalProcessor) ProcessBatch(ctx context.Context, sigs []*models.FlowSignal) error {
	if len(sigs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, sigs)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, sigs)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, s := range sigs {
		p.metrics.RecordSignal(string(s.Type))
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *SignalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
