package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/domain/repository"
	pkgkafka "FlowTrack/pkg/kafka"
)

// ClickHouseSignalStore implements SignalStore for ClickHouse.
// Scalar columns cover the hot query paths; the full signal rides along
// as a JSON payload so Recent can rehydrate it losslessly.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSignalStore creates ClickHouse signal storage.
func NewClickHouseSignalStore(db *sql.DB, table string) repository.SignalStore {
	return &ClickHouseSignalStore{db: db, table: table}
}

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSignalStore) Store(ctx context.Context, sig *models.FlowSignal) error {
	return s.StoreBatch(ctx, []*models.FlowSignal{sig})
}

func (s *ClickHouseSignalStore) StoreBatch(ctx context.Context, sigs []*models.FlowSignal) error {
	if len(sigs) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 500
	for start := 0; start < len(sigs); start += chunkSize {
		end := start + chunkSize
		if end > len(sigs) {
			end = len(sigs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, sig := range sigs[start:end] {
			if sig == nil || sig.Symbol == "" {
				continue
			}
			payload, err := json.Marshal(sig)
			if err != nil {
				return fmt.Errorf("marshal signal %s: %w", sig.ID, err)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				sig.Timestamp,
				sig.ID,
				sig.Symbol,
				string(sig.Type),
				string(sig.Direction),
				string(sig.ConvictionLevel),
				sig.ConvictionScore,
				sig.Metrics.PremiumPaid,
				boolToUInt8(sig.IsSweep),
				string(payload),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (ts, signal_id, symbol, signal_type, direction, conviction_level, conviction_score, premium, is_sweep, payload) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseSignalStore) Recent(ctx context.Context, symbol string, limit int) ([]*models.FlowSignal, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		q    string
		rows *sql.Rows
		err  error
	)
	if symbol == "" {
		q = fmt.Sprintf("SELECT payload FROM %s ORDER BY ts DESC LIMIT ?", s.table)
		rows, err = s.db.QueryContext(ctx, q, limit)
	} else {
		q = fmt.Sprintf("SELECT payload FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT ?", s.table)
		rows, err = s.db.QueryContext(ctx, q, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	out := make([]*models.FlowSignal, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		var sig models.FlowSignal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("unmarshal signal: %w", err)
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaSignalPublisher implements SignalPublisher for Kafka.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, sig *models.FlowSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(sig.Symbol), sig)
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, sigs []*models.FlowSignal) error {
	if len(sigs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(sigs))
	for i, sig := range sigs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(sig.Symbol),
			Value: sig,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
