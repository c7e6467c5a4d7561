package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/metrics"
	"github.com/fhiba/2025Q2-G4/internal/queue"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

// Queue is the part of the work queue the pool consumes.
type Queue interface {
	Claim(ctx context.Context, wait time.Duration) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	DeadLetter(ctx context.Context, d *queue.Delivery, reason string) error
	RequeueExpired(ctx context.Context, now time.Time) (queue.ReapResult, error)
	Depth(ctx context.Context) (int64, error)
}

type PoolOptions struct {
	Min               int64
	Max               int64
	ItemsPerNewWorker int64
	IdleTimeout       time.Duration
	ClaimWait         time.Duration
	ScaleInterval     time.Duration
	ReapInterval      time.Duration
	ItemTimeout       time.Duration
}

func PoolOptionsFromConfig(cfg *config.Config) PoolOptions {
	w := cfg.Workers
	return PoolOptions{
		Min:               w.Min,
		Max:               w.Max,
		ItemsPerNewWorker: w.ItemsPerNewWorker,
		IdleTimeout:       w.IdleTimeout,
		ClaimWait:         w.ClaimWait,
		ScaleInterval:     w.ScaleInterval,
		ReapInterval:      w.ReapInterval,
		ItemTimeout:       w.ItemTimeout,
	}
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.Min < 1 {
		o.Min = config.MinWorkerCount
	}
	if o.Max < o.Min {
		o.Max = o.Min
	}
	if o.ItemsPerNewWorker < 1 {
		o.ItemsPerNewWorker = config.RequestsPerNewWorkerCount
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = config.IdleWorkerTimeout
	}
	if o.ClaimWait <= 0 {
		o.ClaimWait = config.ClaimWait
	}
	if o.ScaleInterval <= 0 {
		o.ScaleInterval = config.ScaleInterval
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = config.ReapInterval
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = config.ItemProcessTimeout
	}
	return o
}

// Pool runs between Min and Max workers that claim items from the queue.
// A dispatcher grows the pool with the pending depth and runs the lease
// reaper; idle workers above Min retire on their own.
type Pool struct {
	queue     Queue
	processor ItemProcessor
	opts      PoolOptions

	currentWorkerCount atomic.Int64
	workerWaitGroup    sync.WaitGroup
	dispatcherDone     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	logger *logger_i.Logger
}

func NewPool(q Queue, processor ItemProcessor, opts PoolOptions) *Pool {
	return &Pool{
		queue:          q,
		processor:      processor,
		opts:           opts.withDefaults(),
		dispatcherDone: make(chan struct{}),
		logger:         logger_i.NewLogger("WorkerPool"),
	}
}

// Start launches the dispatcher. The pool runs until ctx ends or Stop.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("Initializing worker pool", "min", p.opts.Min, "max", p.opts.Max)
	go p.dispatcher()
}

// Stop stops claiming, lets in-flight items finish and waits for every
// worker until ctx ends.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel == nil {
		// never started, nothing to drain
		return nil
	}
	p.once.Do(p.cancel)

	done := make(chan struct{})
	go func() {
		<-p.dispatcherDone
		p.workerWaitGroup.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) WorkerCount() int64 {
	return p.currentWorkerCount.Load()
}

func (p *Pool) dispatcher() {
	defer close(p.dispatcherDone)

	for i := int64(0); i < p.opts.Min; i++ {
		p.createWorker()
	}
	p.logger.Info("Dispatcher started")

	scaleTicker := time.NewTicker(p.opts.ScaleInterval)
	defer scaleTicker.Stop()
	reapTicker := time.NewTicker(p.opts.ReapInterval)
	defer reapTicker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-scaleTicker.C:
			p.scale()
		case now := <-reapTicker.C:
			p.reap(now)
		}
	}
}

func (p *Pool) scale() {
	depth, err := p.queue.Depth(p.ctx)
	if err != nil {
		p.logger.Warn("could not read queue depth", "error", err)
		return
	}
	metrics.SetQueueDepth(depth)

	count := p.currentWorkerCount.Load()
	if count < p.opts.Max && depth > count*p.opts.ItemsPerNewWorker {
		p.logger.Info("Creating new worker", "workerCount", count, "queueDepth", depth)
		metrics.StartScaleSignal()
		p.createWorker()
	}
}

func (p *Pool) reap(now time.Time) {
	res, err := p.queue.RequeueExpired(p.ctx, now)
	if err != nil {
		p.logger.Error("lease reaper failed", "error", err)
		return
	}
	metrics.AddRedelivered(res.Requeued)
	metrics.AddDeadLettered(res.DeadLettered)
	if res.Requeued > 0 || res.DeadLettered > 0 {
		p.logger.Info("expired leases handled", "requeued", res.Requeued, "deadLettered", res.DeadLettered)
	}
}

func (p *Pool) createWorker() {
	p.workerWaitGroup.Add(1)
	p.currentWorkerCount.Add(1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
	p.logger.Debug("Created new worker")
}

func (p *Pool) worker() {
	lastWork := time.Now()
	for {
		if p.ctx.Err() != nil {
			p.removeWorker("Stop worker signal received")
			return
		}

		worked := p.claimAndExecute()
		if worked {
			lastWork = time.Now()
			continue
		}

		// worker was idle for too long, retire unless that drops below Min
		if time.Since(lastWork) >= p.opts.IdleTimeout && p.tryRetire() {
			p.leave("Idle worker timeout")
			return
		}
	}
}

func (p *Pool) tryRetire() bool {
	for {
		n := p.currentWorkerCount.Load()
		if n <= p.opts.Min {
			return false
		}
		if p.currentWorkerCount.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (p *Pool) removeWorker(reason string) {
	p.currentWorkerCount.Add(-1)
	p.leave(reason)
}

func (p *Pool) leave(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.currentWorkerCount.Load())
	p.workerWaitGroup.Done()
}
