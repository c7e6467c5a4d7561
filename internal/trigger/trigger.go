// Package trigger turns upload notifications into queued work items.
package trigger

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/metrics"
	"github.com/fhiba/2025Q2-G4/internal/queue"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

// Notification is one uploaded object as reported by the storage service.
type Notification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type Enqueuer interface {
	Enqueue(ctx context.Context, item invoiceModel.WorkItem) error
}

type EnqueueFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

type BatchResult struct {
	Enqueued int              `json:"enqueued"`
	Failed   []EnqueueFailure `json:"failed,omitempty"`
}

type Trigger struct {
	queue       Enqueuer
	concurrency int
	logger      *logger_i.Logger
}

func New(q Enqueuer, concurrency int) *Trigger {
	if concurrency <= 0 {
		concurrency = config.EnqueueConcurrency
	}
	return &Trigger{
		queue:       q,
		concurrency: concurrency,
		logger:      logger_i.NewLogger("Ingestion Trigger"),
	}
}

// OwnerFromKey returns the first path segment of key. Keys without a '/'
// or with an empty first segment have no owner.
func OwnerFromKey(key string) string {
	owner, _, found := strings.Cut(key, "/")
	if !found {
		return ""
	}
	return owner
}

func RefFor(bucket, key string) invoiceModel.DocumentRef {
	return invoiceModel.DocumentRef{Bucket: bucket, Key: key, OwnerID: OwnerFromKey(key)}
}

// OnUploadNotification enqueues one work item per notification. A failed
// enqueue is reported in the result and never stops the others. Nothing is
// read or stored here.
func (t *Trigger) OnUploadNotification(ctx context.Context, batch []Notification) BatchResult {
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	log := t.logger.With("traceId", traceId, "batchSize", len(batch))

	var (
		mu  sync.Mutex
		res BatchResult
		eg  errgroup.Group
	)
	eg.SetLimit(t.concurrency)

	for _, n := range batch {
		eg.Go(func() error {
			ref := RefFor(n.Bucket, n.Key)
			start := time.Now()
			err := t.queue.Enqueue(ctx, queue.NewWorkItem(ref, traceId))
			metrics.CaptureExecutionMetrics("queue_enqueue", time.Since(start))
			metrics.RecordEnqueue(err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("enqueue failed", "storageKey", n.Key, "error", err)
				res.Failed = append(res.Failed, EnqueueFailure{Key: n.Key, Error: err.Error()})
				return nil
			}
			if !ref.HasOwner() {
				log.Warn("object key has no owner prefix", "storageKey", n.Key)
			}
			res.Enqueued++
			return nil
		})
	}
	_ = eg.Wait()

	log.Info("upload batch handled", "enqueued", res.Enqueued, "failed", len(res.Failed))
	return res
}
