// Package queue is a durable at-least-once work queue on redis lists.
//
// A claimed item moves from pending to processing and gets a lease in a
// sorted set scored by its deadline. Ack drops both. Items whose lease
// expired go back to pending with one more attempt, or to the dead-letter
// list once they have been delivered MaxDeliveries times.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

// moveScript moves ARGV[1] out of processing into KEYS[3] as ARGV[2], but
// only while it is still in processing.
var moveScript = redis.NewScript(`
if redis.call('LREM', KEYS[1], 1, ARGV[1]) == 0 then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('LPUSH', KEYS[3], ARGV[2])
return 1
`)

type Options struct {
	Prefix            string
	VisibilityTimeout time.Duration
	MaxDeliveries     int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Prefix:            cfg.Queue.Prefix,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		MaxDeliveries:     cfg.Queue.MaxDeliveries,
	}
}

type RedisQueue struct {
	store *redisStore.Store
	opts  Options

	pending    string
	processing string
	deadletter string
	leases     string

	logger *logger_i.Logger
}

// Delivery is one claimed item. Item.Attempt is the 1-based number of this
// delivery. raw is the exact list element so it can be removed again.
type Delivery struct {
	Item invoiceModel.WorkItem
	raw  string
}

// ReapResult counts what a RequeueExpired pass did.
type ReapResult struct {
	Requeued     int
	DeadLettered int
}

func NewRedisQueue(store *redisStore.Store, opts Options) *RedisQueue {
	if opts.Prefix == "" {
		opts.Prefix = config.QueuePrefix
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = config.VisibilityTimeout
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = config.MaxDeliveries
	}
	return &RedisQueue{
		store:      store,
		opts:       opts,
		pending:    opts.Prefix + ":pending",
		processing: opts.Prefix + ":processing",
		deadletter: opts.Prefix + ":deadletter",
		leases:     opts.Prefix + ":leases",
		logger:     logger_i.NewLogger("Work Queue"),
	}
}

// NewWorkItem stamps a fresh id for ref.
func NewWorkItem(ref invoiceModel.DocumentRef, traceId string) invoiceModel.WorkItem {
	return invoiceModel.WorkItem{
		Id:         uuid.NewString(),
		Ref:        ref,
		EnqueuedAt: time.Now().UTC(),
		TraceId:    traceId,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, item invoiceModel.WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode work item: %w", err)
	}
	if err := q.store.ListPush(ctx, q.pending, string(data)); err != nil {
		return fmt.Errorf("enqueue %s: %w", item.Ref.Key, err)
	}
	q.logger.Debug("enqueued", "itemId", item.Id, "storageKey", item.Ref.Key)
	return nil
}

// Claim waits up to wait for an item. It returns invoiceModel.ErrQueueEmpty
// when nothing arrived.
func (q *RedisQueue) Claim(ctx context.Context, wait time.Duration) (*Delivery, error) {
	raw, err := q.store.ListBlockingMove(ctx, q.pending, q.processing, wait)
	if q.store.IsNil(err) {
		return nil, invoiceModel.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	deadline := time.Now().Add(q.opts.VisibilityTimeout).UnixMilli()
	if err := q.store.SortedSetAdd(ctx, q.leases, deadline, raw); err != nil {
		// the reaper leases orphaned processing entries, so the item is not lost
		q.logger.Warn("could not write lease", "error", err)
	}

	var item invoiceModel.WorkItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		q.logger.Error("undecodable work item, dead-lettering", "error", err)
		_, _ = q.store.RunScript(ctx, moveScript, []string{q.processing, q.leases, q.deadletter}, raw, raw)
		return nil, fmt.Errorf("decode work item: %w", err)
	}
	item.Attempt++
	return &Delivery{Item: item, raw: raw}, nil
}

func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	return q.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, d.raw)
		pipe.ZRem(ctx, q.leases, d.raw)
		return nil
	})
}

// DeadLetter parks the item with reason. It is a no-op when the item is no
// longer in processing.
func (q *RedisQueue) DeadLetter(ctx context.Context, d *Delivery, reason string) error {
	return q.deadLetterRaw(ctx, d.raw, d.Item, reason)
}

func (q *RedisQueue) deadLetterRaw(ctx context.Context, raw string, item invoiceModel.WorkItem, reason string) error {
	data, err := json.Marshal(invoiceModel.DeadLetter{Item: item, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	moved, err := q.store.RunScript(ctx, moveScript, []string{q.processing, q.leases, q.deadletter}, raw, string(data))
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", item.Ref.Key, err)
	}
	if moved == 1 {
		q.logger.Warn("dead-lettered", "itemId", item.Id, "storageKey", item.Ref.Key, "reason", reason)
	}
	return nil
}

// RequeueExpired returns items whose lease ended before now to pending, or
// dead-letters them once MaxDeliveries is reached.
func (q *RedisQueue) RequeueExpired(ctx context.Context, now time.Time) (ReapResult, error) {
	var res ReapResult

	if err := q.leaseOrphans(ctx, now); err != nil {
		return res, err
	}

	expired, err := q.store.SortedSetRangeByScore(ctx, q.leases, now.UnixMilli())
	if err != nil {
		return res, fmt.Errorf("list expired leases: %w", err)
	}
	for _, raw := range expired {
		removed, err := q.store.SortedSetRemove(ctx, q.leases, raw)
		if err != nil {
			return res, fmt.Errorf("drop lease: %w", err)
		}
		if removed == 0 {
			continue
		}

		var item invoiceModel.WorkItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			q.logger.Error("undecodable work item on reap", "error", err)
			continue
		}
		delivered := item.Attempt + 1
		if delivered >= q.opts.MaxDeliveries {
			item.Attempt = delivered
			if err := q.deadLetterRaw(ctx, raw, item, fmt.Sprintf("lease expired after %d deliveries", delivered)); err != nil {
				return res, err
			}
			res.DeadLettered++
			continue
		}

		item.Attempt = delivered
		data, err := json.Marshal(item)
		if err != nil {
			return res, err
		}
		moved, err := q.store.RunScript(ctx, moveScript, []string{q.processing, q.leases, q.pending}, raw, string(data))
		if err != nil {
			return res, fmt.Errorf("requeue %s: %w", item.Ref.Key, err)
		}
		if moved == 1 {
			res.Requeued++
			q.logger.Info("requeued after lease expiry", "itemId", item.Id, "storageKey", item.Ref.Key, "attempt", item.Attempt)
		}
	}
	return res, nil
}

// a worker that died between BLMOVE and ZADD leaves an item with no lease
func (q *RedisQueue) leaseOrphans(ctx context.Context, now time.Time) error {
	inFlight, err := q.store.ListRange(ctx, q.processing, 0, -1)
	if err != nil {
		return fmt.Errorf("list processing: %w", err)
	}
	if len(inFlight) == 0 {
		return nil
	}
	deadline := now.Add(q.opts.VisibilityTimeout).UnixMilli()
	return q.store.SortedSetAddNX(ctx, q.leases, deadline, inFlight...)
}

func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.store.ListLen(ctx, q.pending)
}

func (q *RedisQueue) InFlight(ctx context.Context) (int64, error) {
	return q.store.ListLen(ctx, q.processing)
}

func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]invoiceModel.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := q.store.ListRange(ctx, q.deadletter, 0, limit-1)
	if err != nil {
		return nil, err
	}
	out := make([]invoiceModel.DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl invoiceModel.DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			dl = invoiceModel.DeadLetter{Reason: "undecodable entry: " + raw}
		}
		out = append(out, dl)
	}
	return out, nil
}
