package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

func newTestQueue(t *testing.T, maxDeliveries int) (*RedisQueue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewRedisQueue(redisStore.NewTestStore(client), Options{
		Prefix:            "test:queue",
		VisibilityTimeout: time.Minute,
		MaxDeliveries:     maxDeliveries,
	})
	return q, mr
}

var docRef = invoiceModel.DocumentRef{Bucket: "invoices", Key: "alice/doc1.pdf", OwnerID: "alice"}

func TestEnqueueClaimAck(t *testing.T) {
	q, mr := newTestQueue(t, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, NewWorkItem(docRef, "trace-1")))
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	d, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, docRef, d.Item.Ref)
	assert.Equal(t, 1, d.Item.Attempt)
	assert.Equal(t, "trace-1", d.Item.TraceId)

	inFlight, _ := q.InFlight(ctx)
	assert.Equal(t, int64(1), inFlight)
	leases, err := mr.ZMembers("test:queue:leases")
	require.NoError(t, err)
	assert.Len(t, leases, 1)

	require.NoError(t, q.Ack(ctx, d))
	inFlight, _ = q.InFlight(ctx)
	assert.Zero(t, inFlight)
	assert.False(t, mr.Exists("test:queue:leases"))
}

func TestClaimEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t, 3)

	_, err := q.Claim(context.Background(), time.Second)
	assert.True(t, errors.Is(err, invoiceModel.ErrQueueEmpty))
}

func TestClaimIsFIFO(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	for _, key := range []string{"a/1.pdf", "a/2.pdf", "a/3.pdf"} {
		require.NoError(t, q.Enqueue(ctx, NewWorkItem(invoiceModel.DocumentRef{Bucket: "b", Key: key}, "")))
	}
	for _, want := range []string{"a/1.pdf", "a/2.pdf", "a/3.pdf"} {
		d, err := q.Claim(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, d.Item.Ref.Key)
	}
}

func TestExpiredLeaseIsRedelivered(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, NewWorkItem(docRef, "")))

	first, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)

	res, err := q.RequeueExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, res.Requeued, "lease still valid")

	res, err = q.RequeueExpired(ctx, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Requeued)

	second, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.Item.Id, second.Item.Id)
	assert.Equal(t, 2, second.Item.Attempt)

	// a late ack from the first worker leaves the redelivered copy in flight
	require.NoError(t, q.Ack(ctx, first))
	inFlight, _ := q.InFlight(ctx)
	assert.Equal(t, int64(1), inFlight)
}

func TestMaxDeliveriesDeadLetters(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, NewWorkItem(docRef, "")))

	later := time.Now().Add(2 * time.Minute)
	_, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	res, err := q.RequeueExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, ReapResult{Requeued: 1}, res)

	_, err = q.Claim(ctx, time.Second)
	require.NoError(t, err)
	res, err = q.RequeueExpired(ctx, later.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, ReapResult{DeadLettered: 1}, res)

	depth, _ := q.Depth(ctx)
	assert.Zero(t, depth)
	dls, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dls, 1)
	assert.Equal(t, docRef, dls[0].Item.Ref)
	assert.Equal(t, 2, dls[0].Item.Attempt)
	assert.Contains(t, dls[0].Reason, "2 deliveries")
}

func TestDeadLetterWithReason(t *testing.T) {
	q, mr := newTestQueue(t, 5)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, NewWorkItem(docRef, "")))

	d, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.DeadLetter(ctx, d, "TooSmall: 50 bytes"))

	inFlight, _ := q.InFlight(ctx)
	assert.Zero(t, inFlight)
	assert.False(t, mr.Exists("test:queue:leases"))

	dls, err := q.DeadLetters(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dls, 1)
	assert.Equal(t, "TooSmall: 50 bytes", dls[0].Reason)

	// a second dead-letter of the same delivery is a no-op
	require.NoError(t, q.DeadLetter(ctx, d, "again"))
	dls, _ = q.DeadLetters(ctx, 0)
	assert.Len(t, dls, 1)
}

func TestOrphanedProcessingEntryGetsLeased(t *testing.T) {
	q, mr := newTestQueue(t, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, NewWorkItem(docRef, "")))

	// simulate a worker that moved the item and died before writing its lease
	raw, err := mr.RPop("test:queue:pending")
	require.NoError(t, err)
	_, err = mr.Lpush("test:queue:processing", raw)
	require.NoError(t, err)

	now := time.Now()
	res, err := q.RequeueExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, res.Requeued)

	res, err = q.RequeueExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Requeued)

	d, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, docRef.Key, d.Item.Ref.Key)
}
