package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"FlipScan/internal/domain/models"
	"FlipScan/internal/domain/repository"
	pkgkafka "FlipScan/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, snap *models.Snapshot) error {
	// ReplacingMergeTree keyed on (item_id, day) absorbs re-collected days.
	q := fmt.Sprintf("INSERT INTO %s (item_id, name, ge_limit, day, price, volume) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		snap.ItemID,
		snap.Name,
		snap.GELimit,
		snap.Day,
		snap.Price,
		snap.Volume,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, snaps []*models.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(snaps); start += chunkSize {
		end := start + chunkSize
		if end > len(snaps) {
			end = len(snaps)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, snap := range snaps[start:end] {
			if snap == nil || snap.ItemID <= 0 || snap.Day.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				snap.ItemID,
				snap.Name,
				snap.GELimit,
				snap.Day,
				snap.Price,
				snap.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (item_id, name, ge_limit, day, price, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, snap *models.Snapshot) error {
	return p.producer.Publish(ctx, p.topic, itemKey(snap.ItemID), snap)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, snaps []*models.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(snaps))
	for i, snap := range snaps {
		msgs[i] = pkgkafka.Message{
			Key:   itemKey(snap.ItemID),
			Value: snap,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// itemKey partitions the topic by item so one item's days stay ordered.
func itemKey(itemID int64) []byte {
	return []byte(fmt.Sprintf("%d", itemID))
}
