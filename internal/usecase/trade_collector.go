package usecase

import (
	"context"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"
	mid "FlowTrack/internal/middleware"
)

// TradeCollector collects trades from the feed and runs them through the
// detection pipeline.
type TradeCollector struct {
	stream   drepo.TradeStream
	detector *FlowDetector
	metrics  drepo.Metrics
	pipe     *mid.RealtimePipeline
}

// NewTradeCollector creates a new TradeCollector instance.
func NewTradeCollector(stream drepo.TradeStream, detector *FlowDetector, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *TradeCollector {
	return &TradeCollector{stream: stream, detector: detector, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the feed is connected.
func (c *TradeCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TradeCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.detector.Start(ctx)
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	return nil
}

func (c *TradeCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-trCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.detector.Process(ctx, t)
			}
		}
	}
}

func (c *TradeCollector) Stop() error { return c.stream.Close() }

// Detector returns the underlying FlowDetector for lifecycle management.
func (c *TradeCollector) Detector() *FlowDetector { return c.detector }

// Shutdown stops pipeline, drains the detector, and closes the stream.
func (c *TradeCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	_ = c.detector.Shutdown(ctx)
	return c.stream.Close()
}
