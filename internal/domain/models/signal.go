package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignalType classifies the kind of detected activity.
type SignalType string

const (
	SignalInstitutionalFlow SignalType = "INSTITUTIONAL_FLOW"
	SignalSweep             SignalType = "SWEEP"
	SignalGoldenSweep       SignalType = "GOLDEN_SWEEP"
	SignalBlock             SignalType = "BLOCK"
	SignalUnusualVolume     SignalType = "UNUSUAL_VOLUME"
	SignalUnusualOI         SignalType = "UNUSUAL_OI"
)

// FlowDirection is the directional read of a signal.
type FlowDirection string

const (
	Bullish FlowDirection = "BULLISH"
	Bearish FlowDirection = "BEARISH"
	Neutral FlowDirection = "NEUTRAL"
)

// ConvictionLevel buckets the conviction score.
type ConvictionLevel string

const (
	ConvictionHigh   ConvictionLevel = "HIGH"
	ConvictionMedium ConvictionLevel = "MEDIUM"
	ConvictionLow    ConvictionLevel = "LOW"
)

// PositioningType labels the inferred intent behind the flow.
type PositioningType string

const (
	Accumulation PositioningType = "Accumulation"
	Distribution PositioningType = "Distribution"
	Hedging      PositioningType = "Hedging"
	Speculative  PositioningType = "Speculative"
	Unknown      PositioningType = "Unknown"
)

// Premium classification tiers.
const (
	PremiumMegaWhale = "MEGA_WHALE"
	PremiumWhale     = "WHALE"
	PremiumNotable   = "NOTABLE"
	PremiumTracked   = "TRACKED"
	PremiumIgnored   = "IGNORED"
)

// TechnicalLevels is a per-symbol support/resistance snapshot attached to
// signals at emission time; it is not retroactively updated.
type TechnicalLevels struct {
	Floor        float64   `json:"floor"`
	Resistance   float64   `json:"resistance"`
	Pivot        float64   `json:"pivot"`
	Support1     float64   `json:"support_1"`
	Support2     float64   `json:"support_2"`
	Resistance1  float64   `json:"resistance_1"`
	Resistance2  float64   `json:"resistance_2"`
	CalculatedAt time.Time `json:"calculated_at"`
	LookbackDays int       `json:"lookback_days"`
}

// IsZero reports an insufficient-data placeholder set.
func (l TechnicalLevels) IsZero() bool {
	return l.Pivot == 0 && l.Floor == 0 && l.Resistance == 0
}

// OptionDetails carries the option leg of a signal.
type OptionDetails struct {
	Type       OptionRight `json:"type"`
	Strike     float64     `json:"strike"`
	Expiration string      `json:"expiration"`
	DTE        int         `json:"dte"`
	Bid        float64     `json:"bid"`
	Ask        float64     `json:"ask"`
	Last       float64     `json:"last"`
	Mid        float64     `json:"mid"`
	Delta      float64     `json:"delta"`
	Gamma      float64     `json:"gamma"`
	Theta      float64     `json:"theta"`
	Vega       float64     `json:"vega"`
	IV         float64     `json:"iv"`
}

// SpreadPct is the bid/ask spread as a percentage of mid, 100 when the
// quote is unusable.
func (o *OptionDetails) SpreadPct() float64 {
	if o.Mid <= 0 {
		return 100
	}
	return (o.Ask - o.Bid) / o.Mid * 100
}

// FlowMetrics holds the quantitative measurements behind a signal.
// Derived ratios are computed once at construction.
type FlowMetrics struct {
	PremiumPaid      float64 `json:"premium"`
	Contracts        int64   `json:"contracts"`
	Volume           int64   `json:"volume"`
	AvgVolume        int64   `json:"avg_volume"`
	OpenInterest     int64   `json:"open_interest"`
	PrevOpenInterest int64   `json:"prev_open_interest"`
	VolumeRatio      float64 `json:"volume_ratio"`
	OIChangePct      float64 `json:"oi_change_pct"`
	PremiumClass     string  `json:"premium_class"`
}

// NewFlowMetrics computes the derived ratios from raw measurements.
// PremiumClass is assigned by the classifier.
func NewFlowMetrics(premium float64, contracts, volume, avgVolume, oi, prevOI int64) FlowMetrics {
	m := FlowMetrics{
		PremiumPaid:      premium,
		Contracts:        contracts,
		Volume:           volume,
		AvgVolume:        avgVolume,
		OpenInterest:     oi,
		PrevOpenInterest: prevOI,
	}
	if avgVolume > 0 {
		m.VolumeRatio = float64(volume) / float64(avgVolume)
	}
	if prevOI > 0 {
		m.OIChangePct = float64(oi-prevOI) / float64(prevOI) * 100
	}
	return m
}

// ConvictionBreakdown itemizes every contributor to the final score.
type ConvictionBreakdown struct {
	Scores    map[string]float64 `json:"scores"`
	Bonuses   map[string]float64 `json:"bonuses"`
	Penalties map[string]float64 `json:"penalties"`
	Final     float64            `json:"final"`
}

// FlowSignal is the principal output unit of the pipeline. Immutable once
// emitted.
type FlowSignal struct {
	ID        string    `json:"signal_id"`
	Timestamp time.Time `json:"timestamp"`

	Symbol    string        `json:"symbol"`
	Type      SignalType    `json:"signal_type"`
	Direction FlowDirection `json:"direction"`

	PriceTarget float64 `json:"price_target"`
	TargetDate  string  `json:"target_date"`

	Positioning        PositioningType `json:"positioning"`
	PositioningDetails string          `json:"positioning_details"`

	UnderlyingPrice float64 `json:"underlying_price"`

	Levels TechnicalLevels `json:"technical_levels"`
	Option *OptionDetails  `json:"option,omitempty"`

	Metrics FlowMetrics `json:"metrics"`

	ConvictionLevel ConvictionLevel     `json:"conviction_level"`
	ConvictionScore float64             `json:"conviction_score"`
	Breakdown       ConvictionBreakdown `json:"conviction_breakdown"`

	Sector string   `json:"sector"`
	Tags   []string `json:"tags"`
	Notes  string   `json:"notes,omitempty"`

	IsSweep        bool `json:"is_sweep"`
	SweepExchanges int  `json:"sweep_exchanges"`

	ConsecutiveDays  int     `json:"consecutive_days"`
	AggregatePremium float64 `json:"aggregate_premium"`
}

// NewSignalID returns a short upper-case identifier.
func NewSignalID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// FlowAlert wraps a signal with notification metadata.
type FlowAlert struct {
	AlertID   string      `json:"alert_id"`
	CreatedAt time.Time   `json:"created_at"`
	Priority  int         `json:"priority"`
	IsRead    bool        `json:"is_read"`
	Signal    *FlowSignal `json:"signal"`
}

// NewFlowAlert builds an alert for a signal.
func NewFlowAlert(sig *FlowSignal, priority int) *FlowAlert {
	return &FlowAlert{
		AlertID:   strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		CreatedAt: time.Now(),
		Priority:  priority,
		Signal:    sig,
	}
}
