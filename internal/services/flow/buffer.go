package flow

import (
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
)

// TradeBuffer holds recent trades per contract key for windowed queries.
// Access to any one contract's slice is serialized by its own lock;
// different contracts never block each other.
type TradeBuffer struct {
	mu    sync.RWMutex
	byKey map[models.ContractKey]*contractBuffer
}

type contractBuffer struct {
	mu     sync.Mutex
	trades []*models.Trade
}

// NewTradeBuffer creates an empty buffer.
func NewTradeBuffer() *TradeBuffer {
	return &TradeBuffer{byKey: make(map[models.ContractKey]*contractBuffer)}
}

// Add appends a trade to its contract's buffer. No dedup.
func (b *TradeBuffer) Add(t *models.Trade) {
	key := t.Contract.Key

	b.mu.RLock()
	cb, ok := b.byKey[key]
	b.mu.RUnlock()

	if !ok {
		b.mu.Lock()
		cb, ok = b.byKey[key]
		if !ok {
			cb = &contractBuffer{}
			b.byKey[key] = cb
		}
		b.mu.Unlock()
	}

	cb.mu.Lock()
	cb.trades = append(cb.trades, t)
	cb.mu.Unlock()
}

// Recent returns trades for the key with timestamp >= now-window, in
// arrival order. Unknown keys yield an empty result.
func (b *TradeBuffer) Recent(key models.ContractKey, window time.Duration) []*models.Trade {
	b.mu.RLock()
	cb, ok := b.byKey[key]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	cutoff := time.Now().Add(-window)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	out := make([]*models.Trade, 0, len(cb.trades))
	for _, t := range cb.trades {
		if !t.Timestamp.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// EvictOlderThan removes trades older than maxAge across all contracts,
// deleting contracts whose buffers become empty. Holds only one
// contract's lock at a time so readers are not blocked for long.
func (b *TradeBuffer) EvictOlderThan(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	b.mu.RLock()
	keys := make([]models.ContractKey, 0, len(b.byKey))
	for k := range b.byKey {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	var empty []models.ContractKey
	for _, k := range keys {
		b.mu.RLock()
		cb, ok := b.byKey[k]
		b.mu.RUnlock()
		if !ok {
			continue
		}

		cb.mu.Lock()
		kept := cb.trades[:0]
		for _, t := range cb.trades {
			if !t.Timestamp.Before(cutoff) {
				kept = append(kept, t)
			}
		}
		cb.trades = kept
		if len(kept) == 0 {
			empty = append(empty, k)
		}
		cb.mu.Unlock()
	}

	if len(empty) > 0 {
		b.mu.Lock()
		for _, k := range empty {
			if cb, ok := b.byKey[k]; ok {
				cb.mu.Lock()
				if len(cb.trades) == 0 {
					delete(b.byKey, k)
				}
				cb.mu.Unlock()
			}
		}
		b.mu.Unlock()
	}
}

// Size returns the total number of buffered trades.
func (b *TradeBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, cb := range b.byKey {
		cb.mu.Lock()
		n += len(cb.trades)
		cb.mu.Unlock()
	}
	return n
}
