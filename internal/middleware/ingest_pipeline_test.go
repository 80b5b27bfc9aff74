package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
)

type fakeProc struct {
	mu      sync.Mutex
	single  []*models.Snapshot
	batches [][]*models.Snapshot
	err     error
}

func (f *fakeProc) Process(_ context.Context, s *models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.single = append(f.single, s)
	return nil
}

func (f *fakeProc) ProcessBatch(_ context.Context, snaps []*models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, snaps)
	return nil
}

func (f *fakeProc) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProc) singleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.single)
}

type nullMetrics struct{}

func (nullMetrics) RecordSnapshotStored(string)   {}
func (nullMetrics) RecordError(string)            {}
func (nullMetrics) RecordItemsScanned(int)        {}
func (nullMetrics) RecordLatency(string, float64) {}

func snap(itemID int64, day time.Time) *models.Snapshot {
	return &models.Snapshot{ItemID: itemID, Name: "item", GELimit: 100, Day: day, Price: 10, Volume: 5}
}

func TestPipelineDropsRepeatedItemDays(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, nullMetrics{})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Process(context.Background(), snap(4151, day)))
	require.NoError(t, p.Process(context.Background(), snap(4151, day)))
	require.NoError(t, p.Process(context.Background(), snap(4151, day.AddDate(0, 0, 1))))

	assert.Len(t, proc.single, 2)
}

func TestPipelineBatchSkipsInvalidAndDuplicateRows(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, nullMetrics{})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	batch := []*models.Snapshot{
		snap(4151, day),
		snap(4151, day), // duplicate
		nil,
		{ItemID: 0, Day: day},            // invalid id
		{ItemID: 2, Day: time.Time{}},    // no day
		{ItemID: 3, Day: day, Price: -1}, // negative price
		snap(2, day),
	}
	require.NoError(t, p.ProcessBatch(context.Background(), batch))

	require.Len(t, proc.batches, 1)
	assert.Len(t, proc.batches[0], 2)
}

func TestPipelineBatchAllRowsInvalidSkipsDownstream(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, nullMetrics{})

	require.NoError(t, p.ProcessBatch(context.Background(), []*models.Snapshot{nil, {ItemID: -1}}))
	assert.Empty(t, proc.batches)
}

func TestPipelineRejectsInvalidSnapshot(t *testing.T) {
	p := NewIngestPipeline(&fakeProc{}, nullMetrics{})

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.Snapshot{ItemID: 0}))
}

func TestPipelineEvictsStaleDayKeys(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, nullMetrics{})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Process(context.Background(), snap(1, day)))
	require.NoError(t, p.Process(context.Background(), snap(2, day)))

	// Advancing past the retention window must shed the old day's keys
	// instead of accumulating one entry per (item, day) forever.
	require.NoError(t, p.Process(context.Background(), snap(1, day.AddDate(0, 0, 5))))
	assert.Len(t, p.seen, 1)

	// An evicted day is simply re-accepted; the storage engine collapses the
	// duplicate row.
	require.NoError(t, p.Process(context.Background(), snap(1, day)))
	assert.Len(t, proc.single, 4)
}

func TestPipelineKeepsKeysInsideRetentionWindow(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, nullMetrics{})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Process(context.Background(), snap(1, day)))
	require.NoError(t, p.Process(context.Background(), snap(1, day.AddDate(0, 0, 1))))

	// Yesterday is still inside the window, so its duplicate is dropped.
	require.NoError(t, p.Process(context.Background(), snap(1, day)))
	assert.Len(t, proc.single, 2)
}

func TestPipelineBuffersWhenDownstreamFails(t *testing.T) {
	proc := &fakeProc{err: errors.New("storage down")}
	p := NewIngestPipeline(proc, nullMetrics{}, WithBufferSize(4))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err := p.Process(context.Background(), snap(4151, day))
	require.Error(t, err)
	assert.Equal(t, 1, len(p.bufCh))
}

func TestPipelineFlushesBufferAfterRecovery(t *testing.T) {
	proc := &fakeProc{err: errors.New("storage down")}
	p := NewIngestPipeline(proc, nullMetrics{}, WithBufferSize(4))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = p.Process(context.Background(), snap(4151, day))

	proc.setErr(nil)
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.singleCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}
