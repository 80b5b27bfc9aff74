package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlipScan/internal/domain/models"
	domrepo "FlipScan/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, s *models.Snapshot) error
	ProcessBatch(ctx context.Context, snaps []*models.Snapshot) error
}

// seenRetentionDays bounds the dedupe map: keys older than this many days
// behind the newest observed day are evicted. The storage engine collapses
// any re-forwarded old rows, so eviction only costs a redundant write.
const seenRetentionDays = 3

// IngestPipeline sits between the collectors and the storage backend.
// It validates, deduplicates repeated (item, day) observations, and buffers
// when downstream is unavailable.
type IngestPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.Snapshot
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	seen    map[dayKey]struct{} // accepted (item, day) pairs, recent days only
	maxDay  int64               // newest unix day accepted so far
}

type dayKey struct {
	itemID int64
	day    int64 // unix day
}

type PipelineOption func(*IngestPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:    proc,
		metrics: metrics,
		bufSize: 10000,
		bufCh:   make(chan *models.Snapshot, 10000),
		stopCh:  make(chan struct{}),
		seen:    make(map[dayKey]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Snapshot, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered snapshots.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.proc.Process(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and deduplicates one snapshot, then forwards it
// downstream, buffering on errors.
func (p *IngestPipeline) Process(ctx context.Context, s *models.Snapshot) error {
	start := time.Now()
	if err := validateSnapshot(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(s) {
		// already stored for this day; drop silently
		p.metrics.RecordError("pipeline_duplicate")
		return nil
	}

	if err := p.proc.Process(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch validates and deduplicates a whole dump, then forwards the
// surviving snapshots in one batch. Invalid rows are skipped, not fatal.
func (p *IngestPipeline) ProcessBatch(ctx context.Context, snaps []*models.Snapshot) error {
	start := time.Now()

	accepted := make([]*models.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if err := validateSnapshot(s); err != nil {
			p.metrics.RecordError("pipeline_validate")
			continue
		}
		if !p.accept(s) {
			p.metrics.RecordError("pipeline_duplicate")
			continue
		}
		accepted = append(accepted, s)
	}
	if len(accepted) == 0 {
		return nil
	}

	if err := p.proc.ProcessBatch(ctx, accepted); err != nil {
		p.metrics.RecordError("pipeline_process_batch")
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process_batch", time.Since(start).Seconds())
	return nil
}

func validateSnapshot(s *models.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot nil")
	}
	if s.ItemID <= 0 {
		return fmt.Errorf("item id invalid")
	}
	if s.Day.IsZero() {
		return fmt.Errorf("day unset")
	}
	if s.Price < 0 || s.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}

// accept records the (item, day) pair and reports whether it was new. When
// the day horizon advances, keys older than the retention window are evicted
// so the map stays bounded by a few days of items.
func (p *IngestPipeline) accept(s *models.Snapshot) bool {
	k := dayKey{itemID: s.ItemID, day: s.Day.Unix() / 86400}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.seen[k]; dup {
		return false
	}
	if k.day > p.maxDay {
		p.maxDay = k.day
		for old := range p.seen {
			if old.day <= p.maxDay-seenRetentionDays {
				delete(p.seen, old)
			}
		}
	}
	p.seen[k] = struct{}{}
	return true
}
