package chainscan

import (
	"context"
	"sync"
	"time"

	"FlowTrack/internal/usecase"
	applogger "FlowTrack/pkg/logger"
)

// Scanner polls chain snapshots for the configured underlyings and runs
// them through unusual volume / open interest detection. One underlying
// failing never stops the sweep over the rest.
type Scanner struct {
	provider *HTTPChainProvider
	detector *usecase.FlowDetector
	symbols  []string
	interval time.Duration
	l        *applogger.Logger

	stopCh  chan struct{}
	stopped sync.Once
	done    chan struct{}
}

func NewScanner(provider *HTTPChainProvider, detector *usecase.FlowDetector, symbols []string, interval time.Duration, l *applogger.Logger) *Scanner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scanner{
		provider: provider,
		detector: detector,
		symbols:  symbols,
		interval: interval,
		l:        l,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. The first scan runs immediately.
func (s *Scanner) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.scanAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.scanAll(ctx)
			}
		}
	}()
}

// Stop terminates the polling loop and waits for the in-flight scan.
func (s *Scanner) Stop() {
	s.stopped.Do(func() { close(s.stopCh) })
	<-s.done
}

func (s *Scanner) scanAll(ctx context.Context) {
	for _, sym := range s.symbols {
		entries, err := s.provider.Snapshot(ctx, sym)
		if err != nil {
			if s.l != nil {
				s.l.Warn("chain snapshot failed",
					applogger.String("symbol", sym),
					applogger.Error(err),
				)
			}
			continue
		}
		sigs := s.detector.ScanChain(ctx, entries)
		if s.l != nil && len(sigs) > 0 {
			s.l.Info("chain scan signals",
				applogger.String("symbol", sym),
				applogger.Int("entries", len(entries)),
				applogger.Int("signals", len(sigs)),
			)
		}
	}
}
