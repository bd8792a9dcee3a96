package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FlowTrack/internal/domain/models"
)

func bufTrade(strike float64, venue string, age time.Duration) *models.Trade {
	return &models.Trade{
		Contract:  models.NewContract("AAPL", strike, models.Call, "2026-01-16"),
		Timestamp: time.Now().Add(-age),
		Price:     2.50,
		Size:      10,
		Venue:     venue,
	}
}

func TestBufferRecentFiltersByWindow(t *testing.T) {
	b := NewTradeBuffer()
	b.Add(bufTrade(150, "CBOE", 0))
	b.Add(bufTrade(150, "PHLX", 500*time.Millisecond))
	b.Add(bufTrade(150, "ISE", 5*time.Second))

	got := b.Recent(models.NewContract("AAPL", 150, models.Call, "2026-01-16").Key, time.Second)
	assert.Len(t, got, 2)
}

func TestBufferSeparatesContracts(t *testing.T) {
	b := NewTradeBuffer()
	b.Add(bufTrade(150, "CBOE", 0))
	b.Add(bufTrade(155, "CBOE", 0))

	got := b.Recent(models.NewContract("AAPL", 150, models.Call, "2026-01-16").Key, time.Second)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, b.Size())
}

func TestBufferRecentUnknownKey(t *testing.T) {
	b := NewTradeBuffer()
	got := b.Recent(models.NewContract("TSLA", 200, models.Put, "2026-01-16").Key, time.Second)
	assert.Empty(t, got)
}

func TestBufferEviction(t *testing.T) {
	b := NewTradeBuffer()
	b.Add(bufTrade(150, "CBOE", 2*time.Minute))
	b.Add(bufTrade(155, "CBOE", 0))
	assert.Equal(t, 2, b.Size())

	b.EvictOlderThan(time.Minute)
	assert.Equal(t, 1, b.Size())

	// the fully emptied contract is dropped from the map too
	got := b.Recent(models.NewContract("AAPL", 150, models.Call, "2026-01-16").Key, time.Hour)
	assert.Empty(t, got)
}
