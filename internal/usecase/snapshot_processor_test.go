package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
)

type fakePublisher struct {
	published []*models.Snapshot
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(_ context.Context, s *models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, s)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, snaps []*models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, snaps...)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeStorage struct {
	stored []*models.Snapshot
	err    error
	closed bool
}

func (f *fakeStorage) Init(context.Context) error   { return nil }
func (f *fakeStorage) Health(context.Context) error { return nil }

func (f *fakeStorage) Store(_ context.Context, s *models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, s)
	return nil
}

func (f *fakeStorage) StoreBatch(_ context.Context, snaps []*models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, snaps...)
	return nil
}

func (f *fakeStorage) Close() error {
	f.closed = true
	return nil
}

func testSnapshot(itemID int64) *models.Snapshot {
	return &models.Snapshot{
		ItemID:  itemID,
		Name:    "Yew logs",
		GELimit: 25000,
		Day:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Price:   250,
		Volume:  1_000_000,
	}
}

func TestProcessorRoutesToKafka(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStorage{}
	p := NewSnapshotProcessor(pub, store, noopMetrics{}, "kafka")

	require.NoError(t, p.Process(context.Background(), testSnapshot(1511)))

	assert.Len(t, pub.published, 1)
	assert.Empty(t, store.stored)
}

func TestProcessorRoutesToClickHouse(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStorage{}
	p := NewSnapshotProcessor(pub, store, noopMetrics{}, "clickhouse")

	require.NoError(t, p.Process(context.Background(), testSnapshot(1511)))
	require.NoError(t, p.ProcessBatch(context.Background(), []*models.Snapshot{testSnapshot(1513), testSnapshot(1515)}))

	assert.Len(t, store.stored, 3)
	assert.Empty(t, pub.published)
}

func TestProcessorUnknownBackend(t *testing.T) {
	p := NewSnapshotProcessor(&fakePublisher{}, &fakeStorage{}, noopMetrics{}, "postgres")

	assert.Error(t, p.Process(context.Background(), testSnapshot(1511)))
	assert.Error(t, p.ProcessBatch(context.Background(), []*models.Snapshot{testSnapshot(1511)}))
}

func TestProcessorNilSnapshot(t *testing.T) {
	p := NewSnapshotProcessor(&fakePublisher{}, &fakeStorage{}, noopMetrics{}, "clickhouse")
	assert.Error(t, p.Process(context.Background(), nil))
}

func TestProcessorEmptyBatchIsNoop(t *testing.T) {
	store := &fakeStorage{}
	p := NewSnapshotProcessor(&fakePublisher{}, store, noopMetrics{}, "clickhouse")

	require.NoError(t, p.ProcessBatch(context.Background(), nil))
	assert.Empty(t, store.stored)
}

func TestProcessorWrapsBackendError(t *testing.T) {
	store := &fakeStorage{err: errors.New("connection refused")}
	p := NewSnapshotProcessor(&fakePublisher{}, store, noopMetrics{}, "clickhouse")

	err := p.Process(context.Background(), testSnapshot(1511))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestProcessorCloseClosesBoth(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStorage{}
	p := NewSnapshotProcessor(pub, store, noopMetrics{}, "kafka")

	p.Close()

	assert.True(t, pub.closed)
	assert.True(t, store.closed)
}
