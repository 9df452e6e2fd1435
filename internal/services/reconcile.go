package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"titanhub/internal/metrics"
	"titanhub/internal/store"
)

const (
	reconcileQueueSize = 1000
	reconcileBatchSize = 50
)

// Reconciler recomputes discussion comment counts from the comment rows in
// the background. Comment writes keep the counter right on their own; the
// reconciler repairs drift from manual data fixes or deleted comments.
type Reconciler struct {
	store    store.CommentStore
	interval time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger

	queue   chan uint // 待校正的讨论 ID
	mu      sync.Mutex
	pending map[uint]bool
}

func NewReconciler(d Deps, interval time.Duration) *Reconciler {
	d = d.withDefaults()
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Reconciler{
		store:    d.Store,
		interval: interval,
		metrics:  d.Metrics,
		log:      d.Logger,
		queue:    make(chan uint, reconcileQueueSize),
		pending:  make(map[uint]bool),
	}
}

// Schedule queues a discussion for recounting. It never blocks; an id that
// is already queued is skipped, and a full queue drops the request.
func (r *Reconciler) Schedule(discussionID uint) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.pending[discussionID] {
		r.mu.Unlock()
		return
	}
	r.pending[discussionID] = true
	r.mu.Unlock()

	select {
	case r.queue <- discussionID:
	default:
		r.mu.Lock()
		delete(r.pending, discussionID)
		r.mu.Unlock()
		r.log.Warn("reconcile queue full, dropping", "discussion_id", discussionID)
	}
}

// Run processes the queue in batches until ctx is done. Whatever is still
// batched at that point is flushed before returning.
func (r *Reconciler) Run(ctx context.Context) {
	batch := make([]uint, 0, reconcileBatchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				r.processBatch(flushCtx, batch)
				cancel()
			}
			return
		case id := <-r.queue:
			batch = append(batch, id)
			if len(batch) >= reconcileBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch releases the ids before recounting so a comment written while
// the recount runs schedules its discussion again.
func (r *Reconciler) processBatch(ctx context.Context, ids []uint) {
	r.mu.Lock()
	for _, id := range ids {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if err := r.store.RecountComments(ctx, ids); err != nil {
		r.log.ErrorContext(ctx, "comment recount failed", "count", len(ids), "error", err)
		return
	}
	r.metrics.Reconciled(len(ids))
}

// ReconcileAll recounts every discussion synchronously, in batches.
func ReconcileAll(ctx context.Context, st store.Store) (int, error) {
	discussions, err := st.ListDiscussions(ctx)
	if err != nil {
		return 0, oops.With("operation", "list discussions").Wrap(err)
	}
	ids := make([]uint, 0, reconcileBatchSize)
	for i, d := range discussions {
		ids = append(ids, d.ID)
		if len(ids) == reconcileBatchSize || i == len(discussions)-1 {
			if err := st.RecountComments(ctx, ids); err != nil {
				return 0, oops.With("operation", "recount comments").Wrap(err)
			}
			ids = ids[:0]
		}
	}
	return len(discussions), nil
}
