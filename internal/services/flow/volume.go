package flow

import (
	"sync"
	"time"

	"FlowTrack/pkg/util"
)

// VolumeTracker accumulates per-symbol daily option volume and serves a
// rolling average for the volume-ratio sub-score.
type VolumeTracker struct {
	mu         sync.RWMutex
	daily      map[string]map[string]int64 // symbol -> date -> contracts
	windowDays int
	defaultAvg int64 // used until enough history accumulates
}

// NewVolumeTracker creates a tracker with the given rolling window.
func NewVolumeTracker(windowDays int) *VolumeTracker {
	if windowDays <= 0 {
		windowDays = 20
	}
	return &VolumeTracker{
		daily:      make(map[string]map[string]int64),
		windowDays: windowDays,
		defaultAvg: 1000,
	}
}

// Record adds executed contracts to the symbol's bucket for the trade day.
func (v *VolumeTracker) Record(symbol string, contracts int64, ts time.Time) {
	day := util.DayKey(ts)

	v.mu.Lock()
	defer v.mu.Unlock()
	m, ok := v.daily[symbol]
	if !ok {
		m = make(map[string]int64)
		v.daily[symbol] = m
	}
	m[day] += contracts

	// trim beyond the rolling window
	if len(m) > v.windowDays+1 {
		cutoff := util.DayCutoff(ts, v.windowDays+1)
		for d := range m {
			if d < cutoff {
				delete(m, d)
			}
		}
	}
}

// TodayVolume returns the volume accumulated for the symbol today.
func (v *VolumeTracker) TodayVolume(symbol string, now time.Time) int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.daily[symbol][util.DayKey(now)]
}

// AvgVolume returns the mean daily volume over past days, excluding
// today. Falls back to a default until history exists.
func (v *VolumeTracker) AvgVolume(symbol string, now time.Time) int64 {
	today := util.DayKey(now)

	v.mu.RLock()
	defer v.mu.RUnlock()
	m, ok := v.daily[symbol]
	if !ok {
		return v.defaultAvg
	}
	var sum, n int64
	for d, vol := range m {
		if d == today {
			continue
		}
		sum += vol
		n++
	}
	if n == 0 {
		return v.defaultAvg
	}
	return sum / n
}
