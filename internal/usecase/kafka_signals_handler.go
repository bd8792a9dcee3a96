package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
	pkgkafka "FlowTrack/pkg/kafka"
)

// KafkaSignalsHandler consumes signal messages and writes them to storage.
type KafkaSignalsHandler struct {
	topic   string
	storage domrepo.SignalStore
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, storage domrepo.SignalStore, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// payload is the FlowSignal JSON produced by the publisher
func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var sig models.FlowSignal
	if err := json.Unmarshal(b, &sig); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// E2E latency from emission time to now (approx)
	h.metrics.RecordLatency("signal_e2e_seconds", time.Since(sig.Timestamp).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &sig)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
