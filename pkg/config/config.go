package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CachedAPI       bool          `yaml:"cached_api"` // serve the rate-limited cached handler variant
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // "kafka" or "clickhouse"
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"flow-signals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"flowtrack-signals"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"1024"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"flowtrack"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"feed"`
	ChainScan struct {
		Enabled  bool          `yaml:"enabled"`
		URL      string        `yaml:"url"`
		Interval time.Duration `yaml:"interval" default:"5m"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		Retries  int           `yaml:"retries" default:"3"`
	} `yaml:"chain_scan"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		SignalsTTL time.Duration `yaml:"signals_ttl" default:"5s"`
		PatternTTL time.Duration `yaml:"pattern_ttl" default:"30s"`
		LevelsTTL  time.Duration `yaml:"levels_ttl" default:"5m"`
	} `yaml:"cache"`
	Alerts struct {
		Enabled    bool          `yaml:"enabled"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
		Workers    int           `yaml:"workers" default:"2"`
	} `yaml:"alerts"`
	Detection Detection `yaml:"detection"`
}

// Detection holds every threshold and weight used by the pipeline. It is
// constructed once at startup, validated, and passed into components as
// an immutable value.
type Detection struct {
	Premium struct {
		MegaWhale   float64 `yaml:"mega_whale" default:"1000000"`
		Whale       float64 `yaml:"whale" default:"250000"`
		Notable     float64 `yaml:"notable" default:"50000"`
		TrackingMin float64 `yaml:"tracking_min" default:"25000"`
	} `yaml:"premium"`
	Volume struct {
		UnusualRatio float64 `yaml:"unusual_ratio" default:"3.0"`
		HighRatio    float64 `yaml:"high_ratio" default:"5.0"`
		ExtremeRatio float64 `yaml:"extreme_ratio" default:"10.0"`
		MinVolume    int64   `yaml:"min_volume" default:"100"`
		MinOI        int64   `yaml:"min_oi" default:"500"`
	} `yaml:"volume"`
	Sweep struct {
		WindowMs        int64   `yaml:"window_ms" default:"1000"`
		MinExchanges    int     `yaml:"min_exchanges" default:"2"`
		MinPremium      float64 `yaml:"min_premium" default:"50000"`
		GoldenPremium   float64 `yaml:"golden_premium" default:"100000"`
		GoldenStrikePct float64 `yaml:"golden_strike_pct" default:"5.0"`
		BufferMaxAge    int64   `yaml:"buffer_max_age_sec" default:"60"`
		BlockMinSize    int64   `yaml:"block_min_size" default:"100"`
	} `yaml:"sweep"`
	Accumulation struct {
		LookbackDays   int     `yaml:"lookback_days" default:"5"`
		GraceDays      int     `yaml:"grace_days" default:"5"`
		MinConsecutive int     `yaml:"min_consecutive" default:"3"`
		MinRatio       float64 `yaml:"min_ratio" default:"2.0"`
		NetRatio       float64 `yaml:"net_ratio" default:"1.5"`
		HedgingBalance float64 `yaml:"hedging_balance" default:"0.7"`
	} `yaml:"accumulation"`
	Technical struct {
		LookbackDays int     `yaml:"lookback_days" default:"20"`
		MinTouches   int     `yaml:"min_touches" default:"2"`
		TolerancePct float64 `yaml:"tolerance_pct" default:"1.0"`
		NearPct      float64 `yaml:"near_pct" default:"2.0"`
	} `yaml:"technical"`
	Conviction struct {
		Weights struct {
			PremiumSize        float64 `yaml:"premium_size" default:"0.30"`
			VolumeUnusual      float64 `yaml:"volume_unusual" default:"0.20"`
			OIChange           float64 `yaml:"oi_change" default:"0.15"`
			SweepDetected      float64 `yaml:"sweep_detected" default:"0.15"`
			MultiDayPattern    float64 `yaml:"multi_day_pattern" default:"0.10"`
			TechnicalAlignment float64 `yaml:"technical_alignment" default:"0.10"`
		} `yaml:"weights"`
		HighMin   float64 `yaml:"high_min" default:"75"`
		MediumMin float64 `yaml:"medium_min" default:"50"`
	} `yaml:"conviction"`
}

// DefaultDetection returns the stock thresholds.
func DefaultDetection() Detection {
	var d Detection
	_ = defaults.Set(&d)
	return d
}

// WeightSum totals the six conviction weights.
func (d *Detection) WeightSum() float64 {
	w := d.Conviction.Weights
	return w.PremiumSize + w.VolumeUnusual + w.OIChange + w.SweepDetected +
		w.MultiDayPattern + w.TechnicalAlignment
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		c.Alerts.WebhookURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid. Threshold or weight
// misconfiguration is fatal: the pipeline must not start with it.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty")
	}
	return c.Detection.Validate()
}

// Validate enforces the detection invariants: conviction weights must sum
// to 1.0 and every threshold must be positive.
func (d *Detection) Validate() error {
	if sum := d.WeightSum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("conviction weights must sum to 1.0, got %.4f", sum)
	}
	positives := map[string]float64{
		"premium.mega_whale":       d.Premium.MegaWhale,
		"premium.whale":            d.Premium.Whale,
		"premium.notable":          d.Premium.Notable,
		"premium.tracking_min":     d.Premium.TrackingMin,
		"volume.unusual_ratio":     d.Volume.UnusualRatio,
		"sweep.window_ms":          float64(d.Sweep.WindowMs),
		"sweep.min_premium":        d.Sweep.MinPremium,
		"sweep.golden_premium":     d.Sweep.GoldenPremium,
		"sweep.buffer_max_age_sec": float64(d.Sweep.BufferMaxAge),
		"accumulation.lookback":    float64(d.Accumulation.LookbackDays),
		"accumulation.min_ratio":   d.Accumulation.MinRatio,
		"accumulation.net_ratio":   d.Accumulation.NetRatio,
		"technical.lookback_days":  float64(d.Technical.LookbackDays),
		"technical.tolerance_pct":  d.Technical.TolerancePct,
		"conviction.high_min":      d.Conviction.HighMin,
		"conviction.medium_min":    d.Conviction.MediumMin,
	}
	for name, v := range positives {
		if v <= 0 {
			return fmt.Errorf("detection.%s must be positive, got %v", name, v)
		}
	}
	if d.Sweep.MinExchanges < 2 {
		return fmt.Errorf("detection.sweep.min_exchanges must be >= 2, got %d", d.Sweep.MinExchanges)
	}
	if d.Accumulation.MinConsecutive < 1 {
		return fmt.Errorf("detection.accumulation.min_consecutive must be >= 1")
	}
	return nil
}
