package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "invoice_queue_depth",
	Help: "Work items waiting in the pending list",
})

var itemsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invoice_items_enqueued_total",
	Help: "Upload notifications turned into work items, by result",
}, []string{"result"})

var itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invoice_items_processed_total",
	Help: "Processed work items by outcome",
}, []string{"outcome"})

var itemsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "invoice_items_dead_lettered_total",
	Help: "Work items moved to the dead-letter list",
})

var itemsRedelivered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "invoice_items_redelivered_total",
	Help: "Work items returned to pending after their lease expired",
})

var scaleSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "worker_scale_signal_total",
	Help: "How often the dispatcher has started an extra worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var processDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "invoice_process_duration_seconds",
	Help:    "Time spent reading, extracting and storing one document.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func SetQueueDepth(depth int64) {
	queueDepth.Set(float64(depth))
}

func RecordEnqueue(ok bool) {
	if ok {
		itemsEnqueued.WithLabelValues("ok").Inc()
		return
	}
	itemsEnqueued.WithLabelValues("error").Inc()
}

func RecordProcessed(outcome string, timeElapsed time.Duration) {
	itemsProcessed.WithLabelValues(outcome).Inc()
	processDuration.WithLabelValues(outcome).Observe(timeElapsed.Seconds())
}

func AddDeadLettered(n int) {
	itemsDeadLettered.Add(float64(n))
}

func AddRedelivered(n int) {
	itemsRedelivered.Add(float64(n))
}

func StartScaleSignal() {
	scaleSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}

func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
