package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FlipScan/internal/domain/models"
	domrepo "FlipScan/internal/domain/repository"
	pkgkafka "FlipScan/pkg/kafka"
)

// KafkaSnapshotsHandler consumes the snapshots topic and writes to storage.
type KafkaSnapshotsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

// Handle stores one snapshot message (models.Snapshot JSON).
func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var s models.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	err := h.storage.Store(ctx, &s)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSnapshotStored("clickhouse")

	// Lag from the observation day to ingestion; daily data, so hours of lag
	// are normal and only multi-day lag signals a stuck consumer.
	h.metrics.RecordLatency("ingest_lag_seconds", time.Since(s.Day).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
