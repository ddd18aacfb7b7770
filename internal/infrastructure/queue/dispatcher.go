package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sinkTimeout    = 5 * time.Second
)

// Dispatcher moves audit records off the request path. Records are sharded
// by client key so one client's denials reach the sink in order.
type Dispatcher struct {
	workers []chan domain.AuditRecord
	sink    ports.AuditSink
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.AuditSink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditRecord, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditRecord, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and exit
// once ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit queues rec without blocking. A full shard drops the record and
// reports false.
func (d *Dispatcher) Submit(rec domain.AuditRecord) bool {
	idx := d.shardIndex(rec.ClientKey)
	select {
	case d.workers[idx] <- rec:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.AuditDroppedTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().Str("client_key", rec.ClientKey).Int("worker_id", idx).Msg("audit queue full, record dropped")
		return false
	}
}

// shardIndex maps a client key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditRecord) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case rec := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(context.WithoutCancel(ctx), id, rec)
		}
	}
}

// drain flushes what is already queued so shutdown does not lose records.
func (d *Dispatcher) drain(id int, ch <-chan domain.AuditRecord) {
	for {
		select {
		case rec := <-ch:
			d.deliver(context.Background(), id, rec)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, rec domain.AuditRecord) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := d.sink.Record(ctx, rec); err != nil {
		metrics.AuditDroppedTotal.WithLabelValues("sink_error").Inc()
		d.log.Error().Err(err).
			Str("audit_id", rec.ID).
			Int("worker_id", id).
			Msg("audit record delivery failed")
	}
}
