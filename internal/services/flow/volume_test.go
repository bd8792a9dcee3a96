package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVolumeDefaultAverage(t *testing.T) {
	v := NewVolumeTracker(20)
	assert.Equal(t, int64(1000), v.AvgVolume("AAPL", time.Now()))
}

func TestVolumeAverageExcludesToday(t *testing.T) {
	v := NewVolumeTracker(20)
	now := time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)

	v.Record("AAPL", 4000, now.AddDate(0, 0, -2))
	v.Record("AAPL", 2000, now.AddDate(0, 0, -1))
	v.Record("AAPL", 99999, now) // today must not skew the average

	assert.Equal(t, int64(3000), v.AvgVolume("AAPL", now))
	assert.Equal(t, int64(99999), v.TodayVolume("AAPL", now))
}

func TestVolumeAccumulatesSameDay(t *testing.T) {
	v := NewVolumeTracker(20)
	now := time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)

	v.Record("TSLA", 100, now)
	v.Record("TSLA", 250, now)
	assert.Equal(t, int64(350), v.TodayVolume("TSLA", now))
}

func TestVolumeWindowTrim(t *testing.T) {
	v := NewVolumeTracker(5)
	now := time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		v.Record("NVDA", 1000, now.AddDate(0, 0, -i))
	}
	// Recording again triggers the trim pass
	v.Record("NVDA", 1000, now)

	avg := v.AvgVolume("NVDA", now)
	assert.Equal(t, int64(1000), avg)
	m := v.daily["NVDA"]
	assert.LessOrEqual(t, len(m), 7)
}
