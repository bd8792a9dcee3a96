package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FlowTrack/internal/domain/models"
	pkgch "FlowTrack/pkg/clickhouse"
	applogger "FlowTrack/pkg/logger"
)

// CHBarStore implements BarProvider backed by ClickHouse daily bars.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string) *CHBarStore {
	return &CHBarStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// DailyBars returns up to lookbackDays of daily OHLCV bars in ascending
// date order, oldest first.
func (s *CHBarStore) DailyBars(ctx context.Context, symbol string, lookbackDays int) ([]models.Bar, error) {
	start := time.Now()
	if lookbackDays <= 0 {
		lookbackDays = 20
	}
	const qtpl = `
        SELECT date, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, lookbackDays)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily_bars query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("lookback", lookbackDays),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("daily bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Bar, 0, lookbackDays)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse daily_bars scan error",
					applogger.String("table", s.table),
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily_bars rows error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse daily_bars ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("lookback", lookbackDays),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

// StoreBars upserts daily bars, used by backfill jobs.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (date, symbol, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table)
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, b.Date, b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("store bar %s %s: %w", b.Symbol, b.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}
