package classify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/domain/service"
	"FlowTrack/pkg/config"
	applogger "FlowTrack/pkg/logger"
)

// Classifier enriches raw trades, sweeps, and chain entries into
// classified FlowSignals: direction, conviction score with itemized
// breakdown, positioning, price target, and tags. Stateless with respect
// to storage; callers persist and aggregate as needed.
type Classifier struct {
	cfg config.Detection
	l   *applogger.Logger

	// replaceable aggressor heuristic
	inferSide models.SideInferrer
}

// New creates a classifier with the default side-inference heuristic.
func New(cfg config.Detection, l *applogger.Logger) *Classifier {
	return &Classifier{cfg: cfg, l: l, inferSide: models.InferSide}
}

// SetSideInferrer swaps the aggressor heuristic.
func (c *Classifier) SetSideInferrer(fn models.SideInferrer) {
	if fn != nil {
		c.inferSide = fn
	}
}

// PremiumClass buckets a premium into its tier label.
func (c *Classifier) PremiumClass(premium float64) string {
	p := c.cfg.Premium
	switch {
	case premium >= p.MegaWhale:
		return models.PremiumMegaWhale
	case premium >= p.Whale:
		return models.PremiumWhale
	case premium >= p.Notable:
		return models.PremiumNotable
	case premium >= p.TrackingMin:
		return models.PremiumTracked
	default:
		return models.PremiumIgnored
	}
}

// ClassifyTrade builds a signal from a single whale-premium execution.
func (c *Classifier) ClassifyTrade(t *models.Trade, cctx service.ClassifyContext) *models.FlowSignal {
	side := t.Side
	if side == "" || side == models.SideUnknown {
		side = c.inferSide(t.Price, t.Bid, t.Ask)
	}

	sigType := models.SignalInstitutionalFlow
	if t.Size >= c.cfg.Sweep.BlockMinSize {
		sigType = models.SignalBlock
	}

	sig := &models.FlowSignal{
		ID:              models.NewSignalID(),
		Timestamp:       t.Timestamp,
		Symbol:          t.Contract.Key.Underlying,
		Type:            sigType,
		Direction:       direction(t.Contract.Key.Right, side),
		UnderlyingPrice: t.UnderlyingPrice,
		Levels:          cctx.Levels,
		Option:          optionDetails(t),
		Metrics:         models.NewFlowMetrics(t.Premium(), t.Size, cctx.Volume, cctx.AvgVolume, cctx.OpenInterest, cctx.PrevOI),
		TargetDate:      t.Contract.Key.Expiration,
	}
	c.finish(sig, cctx.History)
	return sig
}

// ClassifySweep builds a signal from a synthetic sweep event.
func (c *Classifier) ClassifySweep(sw *models.SweepEvent, cctx service.ClassifyContext) *models.FlowSignal {
	sigType := models.SignalSweep
	if sw.Golden {
		sigType = models.SignalGoldenSweep
	}

	var opt *models.OptionDetails
	if len(sw.Trades) > 0 {
		opt = optionDetails(sw.Trades[len(sw.Trades)-1])
		opt.Last = sw.AvgPrice
	}

	sig := &models.FlowSignal{
		ID:              models.NewSignalID(),
		Timestamp:       sw.DetectedAt,
		Symbol:          sw.Contract.Key.Underlying,
		Type:            sigType,
		Direction:       sw.Direction,
		UnderlyingPrice: sw.UnderlyingPrice,
		Levels:          cctx.Levels,
		Option:          opt,
		Metrics:         models.NewFlowMetrics(sw.TotalPremium, sw.TotalContracts, cctx.Volume, cctx.AvgVolume, cctx.OpenInterest, cctx.PrevOI),
		TargetDate:      sw.Contract.Key.Expiration,
		IsSweep:         true,
		SweepExchanges:  sw.Exchanges,
	}
	c.finish(sig, cctx.History)
	return sig
}

// ClassifyChainEntry builds an unusual volume or open-interest signal
// from an option-chain snapshot, nil when the entry clears no bar.
func (c *Classifier) ClassifyChainEntry(e *models.ChainEntry, cctx service.ClassifyContext) *models.FlowSignal {
	var sigType models.SignalType
	switch {
	case e.VolumeRatio() >= c.cfg.Volume.UnusualRatio && e.Volume >= c.cfg.Volume.MinVolume:
		sigType = models.SignalUnusualVolume
	case math.Abs(e.OIChangePct()) >= 20 && e.OpenInterest >= c.cfg.Volume.MinOI:
		sigType = models.SignalUnusualOI
	default:
		return nil
	}

	// chain snapshots carry no aggressor side; lean on the option right
	dir := models.Bullish
	if e.Contract.Key.Right == models.Put {
		dir = models.Bearish
	}
	if sigType == models.SignalUnusualOI && e.OpenInterest < e.PrevOpenInterest {
		// positions unwinding, flip the read
		if dir == models.Bullish {
			dir = models.Bearish
		} else {
			dir = models.Bullish
		}
	}

	mid := (e.Bid + e.Ask) / 2
	premium := e.Last * float64(e.Volume) * float64(e.Contract.Multiplier)

	sig := &models.FlowSignal{
		ID:              models.NewSignalID(),
		Timestamp:       time.Now(),
		Symbol:          e.Contract.Key.Underlying,
		Type:            sigType,
		Direction:       dir,
		UnderlyingPrice: e.UnderlyingPrice,
		Levels:          cctx.Levels,
		Option: &models.OptionDetails{
			Type:       e.Contract.Key.Right,
			Strike:     e.Contract.Key.Strike,
			Expiration: e.Contract.Key.Expiration,
			DTE:        e.Contract.DaysToExpiry(time.Now()),
			Bid:        e.Bid,
			Ask:        e.Ask,
			Last:       e.Last,
			Mid:        mid,
		},
		Metrics:    models.NewFlowMetrics(premium, e.Volume, e.Volume, e.AvgVolume, e.OpenInterest, e.PrevOpenInterest),
		TargetDate: e.Contract.Key.Expiration,
	}
	c.finish(sig, cctx.History)
	return sig
}

// finish applies the shared enrichment: premium class, conviction,
// positioning, target, sector, and tags.
func (c *Classifier) finish(sig *models.FlowSignal, history []*models.FlowSignal) {
	sig.Sector = models.Sector(sig.Symbol)
	sig.Metrics.PremiumClass = c.PremiumClass(sig.Metrics.PremiumPaid)

	sig.ConvictionScore, sig.Breakdown = c.conviction(sig, history)
	sig.ConvictionLevel = c.level(sig.ConvictionScore)

	sig.Positioning, sig.PositioningDetails = c.positioning(sig, history)

	if sig.PriceTarget == 0 {
		sig.PriceTarget = c.priceTarget(sig)
	}

	sig.Tags = Tags(sig)
}

// direction maps option right and aggressor side to a directional read:
// calls bought and puts sold are bullish, the mirror is bearish.
func direction(right models.OptionRight, side models.TradeSide) models.FlowDirection {
	switch {
	case right == models.Call && side == models.Buy:
		return models.Bullish
	case right == models.Put && side == models.Sell:
		return models.Bullish
	case right == models.Put && side == models.Buy:
		return models.Bearish
	case right == models.Call && side == models.Sell:
		return models.Bearish
	default:
		return models.Neutral
	}
}

// conviction computes the weighted score and its itemized breakdown.
// Always clamped to [0,100].
func (c *Classifier) conviction(sig *models.FlowSignal, history []*models.FlowSignal) (float64, models.ConvictionBreakdown) {
	w := c.cfg.Conviction.Weights
	scores := make(map[string]float64, 6)

	premium := sig.Metrics.PremiumPaid
	switch {
	case premium >= c.cfg.Premium.MegaWhale:
		scores["premium_size"] = 100
	case premium >= c.cfg.Premium.Whale:
		scores["premium_size"] = 85
	case premium >= c.cfg.Premium.Notable:
		scores["premium_size"] = 70
	case premium >= c.cfg.Premium.TrackingMin:
		scores["premium_size"] = 50
	default:
		scores["premium_size"] = 30
	}

	switch vr := sig.Metrics.VolumeRatio; {
	case vr >= 10:
		scores["volume_unusual"] = 100
	case vr >= 5:
		scores["volume_unusual"] = 80
	case vr >= 3:
		scores["volume_unusual"] = 60
	case vr >= 2:
		scores["volume_unusual"] = 40
	default:
		scores["volume_unusual"] = 20
	}

	switch oi := math.Abs(sig.Metrics.OIChangePct); {
	case oi >= 100:
		scores["oi_change"] = 100
	case oi >= 50:
		scores["oi_change"] = 75
	case oi >= 20:
		scores["oi_change"] = 50
	default:
		scores["oi_change"] = 25
	}

	if sig.IsSweep {
		scores["sweep_detected"] = 80 + math.Min(float64(sig.SweepExchanges)*10, 20)
	} else {
		scores["sweep_detected"] = 0
	}

	sameDirection := 0
	for _, f := range history {
		if f.Direction == sig.Direction {
			sameDirection++
		}
	}
	switch {
	case len(history) == 0:
		scores["multi_day_pattern"] = 0
	case sameDirection >= 5:
		scores["multi_day_pattern"] = 100
	case sameDirection >= 3:
		scores["multi_day_pattern"] = 70
	case sameDirection >= 1:
		scores["multi_day_pattern"] = 40
	default:
		scores["multi_day_pattern"] = 0
	}

	scores["technical_alignment"] = 40
	if sig.UnderlyingPrice > 0 && !sig.Levels.IsZero() {
		nearPct := c.cfg.Technical.NearPct / 100
		nearSupport := math.Abs(sig.UnderlyingPrice-sig.Levels.Floor)/sig.UnderlyingPrice < nearPct
		nearResistance := math.Abs(sig.UnderlyingPrice-sig.Levels.Resistance)/sig.UnderlyingPrice < nearPct
		if (sig.Direction == models.Bullish && nearSupport) ||
			(sig.Direction == models.Bearish && nearResistance) {
			scores["technical_alignment"] = 80
		}
	}

	base := scores["premium_size"]*w.PremiumSize +
		scores["volume_unusual"]*w.VolumeUnusual +
		scores["oi_change"]*w.OIChange +
		scores["sweep_detected"]*w.SweepDetected +
		scores["multi_day_pattern"]*w.MultiDayPattern +
		scores["technical_alignment"]*w.TechnicalAlignment

	bonuses := make(map[string]float64)
	if sig.IsSweep {
		bonuses["sweep_bonus"] = 15
	}
	if sig.Option != nil && sig.UnderlyingPrice > 0 {
		otmPct := math.Abs(sig.Option.Strike-sig.UnderlyingPrice) / sig.UnderlyingPrice * 100
		if otmPct <= 5 {
			bonuses["atm_bonus"] = 10
		}
	}
	if sig.ConsecutiveDays >= 3 {
		bonuses["multi_day_bonus"] = 10
	}

	penalties := make(map[string]float64)
	if sig.Option != nil && sig.Option.SpreadPct() > 10 {
		penalties["wide_spread"] = -10
	}
	if sig.Metrics.OpenInterest < c.cfg.Volume.MinOI {
		penalties["low_liquidity"] = -15
	}
	if sig.Option != nil && sig.UnderlyingPrice > 0 {
		otmPct := math.Abs(sig.Option.Strike-sig.UnderlyingPrice) / sig.UnderlyingPrice * 100
		if otmPct > 20 {
			penalties["far_otm"] = -5
		}
	}

	final := base
	for _, b := range bonuses {
		final += b
	}
	for _, p := range penalties {
		final += p
	}
	final = math.Max(0, math.Min(100, final))

	return final, models.ConvictionBreakdown{
		Scores:    scores,
		Bonuses:   bonuses,
		Penalties: penalties,
		Final:     final,
	}
}

func (c *Classifier) level(score float64) models.ConvictionLevel {
	switch {
	case score >= c.cfg.Conviction.HighMin:
		return models.ConvictionHigh
	case score >= c.cfg.Conviction.MediumMin:
		return models.ConvictionMedium
	default:
		return models.ConvictionLow
	}
}

// positioning infers institutional intent from same-symbol history, or
// from the single signal when no history exists.
func (c *Classifier) positioning(sig *models.FlowSignal, history []*models.FlowSignal) (models.PositioningType, string) {
	if len(history) == 0 {
		if sig.Metrics.PremiumPaid >= c.cfg.Premium.Whale {
			switch sig.Direction {
			case models.Bullish:
				return models.Accumulation, "Large bullish premium detected"
			case models.Bearish:
				return models.Distribution, "Large bearish premium detected"
			}
		}
		return models.Speculative, "Single trade detected"
	}

	var bullishCount, bearishCount int
	var bullishPremium, bearishPremium float64
	days := make(map[string]struct{})
	for _, f := range history {
		days[f.Timestamp.Format("2006-01-02")] = struct{}{}
		switch f.Direction {
		case models.Bullish:
			bullishCount++
			bullishPremium += f.Metrics.PremiumPaid
		case models.Bearish:
			bearishCount++
			bearishPremium += f.Metrics.PremiumPaid
		}
	}

	if bullishCount > bearishCount*2 && bullishPremium > bearishPremium*1.5 {
		return models.Accumulation, fmt.Sprintf("Last %d trading days showed accumulation", len(days))
	}
	if bearishCount > bullishCount*2 && bearishPremium > bullishPremium*1.5 {
		return models.Distribution, fmt.Sprintf("Last %d trading days showed distribution", len(days))
	}
	if math.Abs(bullishPremium-bearishPremium)/math.Max(math.Max(bullishPremium, bearishPremium), 1) < 0.3 {
		return models.Hedging, "Balanced call/put activity suggests hedging"
	}
	return models.Unknown, "Mixed signals detected"
}

// priceTarget projects a target from the option leg: breakeven plus half
// the strike-to-breakeven distance for calls, mirrored for puts. Without
// an option leg the target is underlying +-10%.
func (c *Classifier) priceTarget(sig *models.FlowSignal) float64 {
	if sig.Option == nil {
		if sig.Direction == models.Bullish {
			return round2(sig.UnderlyingPrice * 1.1)
		}
		return round2(sig.UnderlyingPrice * 0.9)
	}

	opt := sig.Option
	perShare := opt.Mid
	if perShare <= 0 {
		perShare = opt.Last
	}

	var target float64
	if opt.Type == models.Call {
		breakeven := opt.Strike + perShare
		target = breakeven + (breakeven-opt.Strike)*0.5
	} else {
		breakeven := opt.Strike - perShare
		target = breakeven - (opt.Strike-breakeven)*0.5
	}
	return round2(target)
}

// Tags is a pure function over the signal's already-computed fields,
// returning an ordered list of descriptive tags.
func Tags(sig *models.FlowSignal) []string {
	tags := make([]string, 0, 8)

	if sig.Metrics.PremiumClass != "" {
		tags = append(tags, sig.Metrics.PremiumClass)
	}
	tags = append(tags, string(sig.Type), string(sig.Direction),
		string(sig.ConvictionLevel)+"_CONVICTION")

	if sig.IsSweep {
		tags = append(tags, "SWEEP")
		if sig.SweepExchanges >= 3 {
			tags = append(tags, "MULTI_EXCHANGE")
		}
	}

	switch {
	case sig.Metrics.VolumeRatio >= 5:
		tags = append(tags, "EXTREME_VOLUME")
	case sig.Metrics.VolumeRatio >= 3:
		tags = append(tags, "HIGH_VOLUME")
	}

	if sig.Metrics.OIChangePct >= 50 {
		tags = append(tags, "HIGH_OI_CHANGE")
	}

	if sig.Sector != "Other" {
		tags = append(tags, strings.ToUpper(sig.Sector))
	}
	return tags
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func optionDetails(t *models.Trade) *models.OptionDetails {
	return &models.OptionDetails{
		Type:       t.Contract.Key.Right,
		Strike:     t.Contract.Key.Strike,
		Expiration: t.Contract.Key.Expiration,
		DTE:        t.Contract.DaysToExpiry(t.Timestamp),
		Bid:        t.Bid,
		Ask:        t.Ask,
		Last:       t.Price,
		Mid:        t.Mid(),
	}
}
