package worker

import (
	"context"
	"errors"
	"time"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/metrics"
	"github.com/fhiba/2025Q2-G4/internal/queue"
)

const (
	OutcomeStored       = "stored"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeLeftForRetry = "left_for_retry"

	settleTimeout = 5 * time.Second
)

// claimAndExecute reports whether an item was claimed.
func (p *Pool) claimAndExecute() bool {
	d, err := p.queue.Claim(p.ctx, p.opts.ClaimWait)
	switch {
	case errors.Is(err, invoiceModel.ErrQueueEmpty):
		return false
	case err != nil:
		if p.ctx.Err() == nil {
			p.logger.Error("claim failed", "error", err)
			select {
			case <-p.ctx.Done():
			case <-time.After(p.opts.ClaimWait):
			}
		}
		return false
	}
	p.executeItem(d)
	return true
}

// executeItem processes one delivery. It runs on its own context so a
// stopping pool still finishes the item it holds.
func (p *Pool) executeItem(d *queue.Delivery) string {
	start := time.Now()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, d.Item.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.opts.ItemTimeout)
	defer cancel()

	log := p.logger.With("traceId", d.Item.TraceId, "itemId", d.Item.Id, "storageKey", d.Item.Ref.Key, "attempt", d.Item.Attempt)
	log.Debug("Processing work item")

	_, err := p.processor.Process(ctx, d.Item.Ref)

	// the item budget may be spent, settling gets its own
	settleCtx, cancelSettle := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancelSettle()
	outcome := p.settle(settleCtx, d, err)
	metrics.RecordProcessed(outcome, time.Since(start))
	return outcome
}

func (p *Pool) settle(ctx context.Context, d *queue.Delivery, procErr error) string {
	log := p.logger.With("traceId", d.Item.TraceId, "itemId", d.Item.Id, "storageKey", d.Item.Ref.Key)

	if procErr == nil {
		if err := p.queue.Ack(ctx, d); err != nil {
			// the record is stored; a redelivery only rewrites it
			log.Warn("ack failed", "error", err)
		}
		return OutcomeStored
	}

	var pe *invoiceModel.ProcessError
	if errors.As(procErr, &pe) && pe.Permanent() {
		if err := p.queue.DeadLetter(ctx, d, procErr.Error()); err != nil {
			log.Error("dead-letter failed", "error", err)
			return OutcomeLeftForRetry
		}
		metrics.AddDeadLettered(1)
		return OutcomeDeadLettered
	}

	log.Warn("transient failure, item left for redelivery", "error", procErr)
	return OutcomeLeftForRetry
}
