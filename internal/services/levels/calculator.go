package levels

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/domain/repository"
	"FlowTrack/pkg/config"
	applogger "FlowTrack/pkg/logger"
)

// Calculator derives support/resistance context from historical daily
// bars: standard pivot points plus clustered price-action levels.
// Results are cached per symbol.
type Calculator struct {
	cfg  config.Detection
	bars repository.BarProvider
	l    *applogger.Logger

	mu    sync.RWMutex
	cache map[string]models.TechnicalLevels
}

// NewCalculator creates a calculator backed by the given bar provider.
func NewCalculator(cfg config.Detection, bars repository.BarProvider, l *applogger.Logger) *Calculator {
	return &Calculator{cfg: cfg, bars: bars, l: l, cache: make(map[string]models.TechnicalLevels)}
}

// Levels returns the symbol's technical levels, computing and caching
// them on first use. Provider errors yield a zero-valued snapshot; the
// zeroed fields signal "insufficient data" to the caller.
func (c *Calculator) Levels(ctx context.Context, symbol string) models.TechnicalLevels {
	c.mu.RLock()
	if lv, ok := c.cache[symbol]; ok {
		c.mu.RUnlock()
		return lv
	}
	c.mu.RUnlock()

	var bars []models.Bar
	if c.bars != nil {
		var err error
		bars, err = c.bars.DailyBars(ctx, symbol, c.cfg.Technical.LookbackDays)
		if err != nil {
			if c.l != nil {
				c.l.Warn("daily bars unavailable",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return models.TechnicalLevels{CalculatedAt: time.Now()}
		}
	}

	lv := c.Compute(bars)
	c.mu.Lock()
	c.cache[symbol] = lv
	c.mu.Unlock()
	return lv
}

// Invalidate drops the cached snapshot for a symbol.
func (c *Calculator) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.cache, symbol)
	c.mu.Unlock()
}

// Compute derives levels from bars, most recent last. Fewer than 5 bars
// returns a zero-valued placeholder set rather than an error.
func (c *Calculator) Compute(bars []models.Bar) models.TechnicalLevels {
	if len(bars) < 5 {
		return models.TechnicalLevels{CalculatedAt: time.Now()}
	}

	lookback := c.cfg.Technical.LookbackDays
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	last := bars[len(bars)-1]
	pivot := (last.High + last.Low + last.Close) / 3
	r1 := 2*pivot - last.Low
	r2 := pivot + (last.High - last.Low)
	s1 := 2*pivot - last.High
	s2 := pivot - (last.High - last.Low)

	supports, resistances := c.findSRLevels(bars)

	floor := pickLevel(supports, last.Close, false)
	if floor == 0 {
		floor = s1
	}
	resistance := pickLevel(resistances, last.Close, true)
	if resistance == 0 {
		resistance = r1
	}

	return models.TechnicalLevels{
		Floor:        round2(floor),
		Resistance:   round2(resistance),
		Pivot:        round2(pivot),
		Support1:     round2(s1),
		Support2:     round2(s2),
		Resistance1:  round2(r1),
		Resistance2:  round2(r2),
		CalculatedAt: time.Now(),
		LookbackDays: len(bars),
	}
}

// FromPrice estimates levels when no bar history exists: a 52-week range
// fraction when known, otherwise +-5% of the current price.
func (c *Calculator) FromPrice(price, high52w, low52w float64) models.TechnicalLevels {
	var support, resistance float64
	if high52w > 0 && low52w > 0 {
		r := high52w - low52w
		resistance = price + r*0.1
		support = price - r*0.1
	} else {
		resistance = price * 1.05
		support = price * 0.95
	}

	return models.TechnicalLevels{
		Floor:        round2(support),
		Resistance:   round2(resistance),
		Pivot:        round2(price),
		Support1:     round2(support * 0.98),
		Support2:     round2(support * 0.95),
		Resistance1:  round2(resistance * 1.02),
		Resistance2:  round2(resistance * 1.05),
		CalculatedAt: time.Now(),
	}
}

// NearSupport reports whether price sits within the configured band of
// the floor level.
func (c *Calculator) NearSupport(lv models.TechnicalLevels, price float64) bool {
	if lv.Floor <= 0 {
		return false
	}
	return math.Abs(price-lv.Floor)/lv.Floor*100 <= c.cfg.Technical.NearPct
}

// NearResistance reports whether price sits within the configured band
// of the resistance level.
func (c *Calculator) NearResistance(lv models.TechnicalLevels, price float64) bool {
	if lv.Resistance <= 0 {
		return false
	}
	return math.Abs(price-lv.Resistance)/lv.Resistance*100 <= c.cfg.Technical.NearPct
}

// NearestLevel finds the closest non-zero level to the price, returning
// its name, value, and distance in percent.
func NearestLevel(lv models.TechnicalLevels, price float64) (string, float64, float64) {
	all := []struct {
		name  string
		value float64
	}{
		{"floor", lv.Floor},
		{"resistance", lv.Resistance},
		{"pivot", lv.Pivot},
		{"s1", lv.Support1},
		{"s2", lv.Support2},
		{"r1", lv.Resistance1},
		{"r2", lv.Resistance2},
	}

	name, value := "none", 0.0
	minDist := math.Inf(1)
	for _, l := range all {
		if l.value <= 0 {
			continue
		}
		if d := math.Abs(price - l.value); d < minDist {
			minDist = d
			name, value = l.name, l.value
		}
	}
	if name == "none" || price <= 0 {
		return "none", 0, 0
	}
	return name, value, minDist / price * 100
}

// cluster is a group of nearby extrema.
type cluster struct {
	price   float64
	touches int
}

// findSRLevels scans for local minima/maxima with a +-2 bar window and
// clusters them within the tolerance band.
func (c *Calculator) findSRLevels(bars []models.Bar) ([]cluster, []cluster) {
	if len(bars) < 5 {
		return nil, nil
	}

	var lows, highs []float64
	for i := 2; i < len(bars)-2; i++ {
		if bars[i].Low <= bars[i-1].Low && bars[i].Low <= bars[i-2].Low &&
			bars[i].Low <= bars[i+1].Low && bars[i].Low <= bars[i+2].Low {
			lows = append(lows, bars[i].Low)
		}
		if bars[i].High >= bars[i-1].High && bars[i].High >= bars[i-2].High &&
			bars[i].High >= bars[i+1].High && bars[i].High >= bars[i+2].High {
			highs = append(highs, bars[i].High)
		}
	}

	tol := c.cfg.Technical.TolerancePct
	minTouches := c.cfg.Technical.MinTouches
	return clusterLevels(lows, tol, minTouches), clusterLevels(highs, tol, minTouches)
}

// clusterLevels groups sorted prices whose distance from the running
// cluster mean stays within tolerance, keeping clusters with enough
// touches.
func clusterLevels(prices []float64, tolerancePct float64, minTouches int) []cluster {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var out []cluster
	current := []float64{sorted[0]}

	flush := func() {
		if len(current) >= minTouches {
			out = append(out, cluster{price: mean(current), touches: len(current)})
		}
	}

	for _, p := range sorted[1:] {
		avg := mean(current)
		if math.Abs(p-avg) <= avg*(tolerancePct/100) {
			current = append(current, p)
		} else {
			flush()
			current = []float64{p}
		}
	}
	flush()
	return out
}

// pickLevel selects the strongest cluster on the required side of the
// price (above for resistance, below for support); ties go to the level
// nearest the price.
func pickLevel(clusters []cluster, price float64, above bool) float64 {
	best := cluster{}
	bestDist := math.Inf(1)
	for _, cl := range clusters {
		if above && cl.price <= price {
			continue
		}
		if !above && cl.price >= price {
			continue
		}
		d := math.Abs(cl.price - price)
		if cl.touches > best.touches || (cl.touches == best.touches && d < bestDist) {
			best = cl
			bestDist = d
		}
	}
	return best.price
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
