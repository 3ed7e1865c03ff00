// Package dispatch centralizes access to one expensive ASR engine shared
// by several StreamTranscribers, serializing calls through a single
// worker and a bounded, priority-ordered request queue.
package dispatch

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/livecap/livecap-core/internal/breaker"
	"github.com/livecap/livecap-core/internal/enginecache"
	"github.com/livecap/livecap-core/internal/metrics"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

// ErrBreakerOpen is returned when the engine circuit breaker is open and
// a request is rejected without reaching the engine.
var ErrBreakerOpen = errors.New("dispatch: engine circuit breaker open")

// loadGroup collapses concurrent loads of the same engine_id across
// dispatcher instances (e.g. a dispatcher restarted while another is
// still warming up) into a single loader call.
var loadGroup singleflight.Group

// ErrDispatcherStopped is returned by Submit once Stop has been called.
var ErrDispatcherStopped = errors.New("dispatch: stopped")

// LoaderFunc loads the shared engine. It runs once, in a background
// goroutine started by Start.
type LoaderFunc func() (transcribe.Transcriber, error)

// Result is the outcome of one served TranscriptionRequest.
type Result struct {
	Text       string
	Confidence float32
}

// TranscriptionRequest is one unit of work submitted to a
// SharedEngineDispatcher. Construct with NewTranscriptionRequest.
type TranscriptionRequest struct {
	SourceID   string
	Audio      []float32
	SampleRate uint32
	// Priority is ascending: lower values are served first. Zero means
	// "use the dispatcher's per-source default, if any".
	Priority int

	resultCh chan requestOutcome
}

type requestOutcome struct {
	Result Result
	Err    error
}

// NewTranscriptionRequest builds a request ready for Submit.
func NewTranscriptionRequest(sourceID string, audio []float32, sampleRate uint32, priority int) *TranscriptionRequest {
	return &TranscriptionRequest{
		SourceID:   sourceID,
		Audio:      audio,
		SampleRate: sampleRate,
		Priority:   priority,
		resultCh:   make(chan requestOutcome, 1),
	}
}

// stopSentinel is a unique marker request; the worker exits upon
// dequeuing it rather than serving it.
var stopSentinel = &TranscriptionRequest{}

// Stats is a point-in-time snapshot of dispatcher activity.
type Stats struct {
	TotalRequests   uint64
	Successes       uint64
	Failures        uint64
	AvgProcessingMS float64
	CacheHits       uint64
	CacheMisses     uint64
	PerSource       map[string]uint64
}

// SharedEngineDispatcher serializes access to one ASR engine across many
// callers. Start loads the engine in the background; Submit queues a
// request and blocks for its result.
type SharedEngineDispatcher struct {
	engineID    string
	loader      LoaderFunc
	cache       *enginecache.Cache[transcribe.Transcriber]
	promoteCold bool
	capacity    int

	mu         sync.Mutex
	pq         priorityQueue
	pushSignal chan struct{}
	popSignal  chan struct{}

	counter uint64

	ready   chan struct{}
	loadMu  sync.Mutex
	loadErr error
	failed  atomic.Bool

	engineMu sync.RWMutex
	engine   transcribe.Transcriber

	breaker *breaker.Breaker

	overridesMu sync.Mutex
	overrides   map[string]int

	statsMu sync.Mutex
	stats   Stats

	closed     atomic.Bool
	stopOnce   sync.Once
	workerDone chan struct{}
}

// New creates a dispatcher for the engine identified by engineID.
// cache is the shared engine-handle cache (nil disables caching, every
// Start reloads). promoteToStrongCache mirrors LIVECAP_ENGINE_STRONG_CACHE.
// capacity bounds the pending-request queue; <= 0 means unbounded.
func New(engineID string, loader LoaderFunc, cache *enginecache.Cache[transcribe.Transcriber], promoteToStrongCache bool, capacity int) *SharedEngineDispatcher {
	return &SharedEngineDispatcher{
		engineID:    engineID,
		loader:      loader,
		cache:       cache,
		promoteCold: promoteToStrongCache,
		capacity:    capacity,
		pushSignal:  make(chan struct{}),
		popSignal:   make(chan struct{}),
		ready:       make(chan struct{}),
		overrides:   make(map[string]int),
		workerDone:  make(chan struct{}),
	}
}

// SetBreaker installs a circuit breaker guarding calls to the underlying
// engine: once it trips open, serve rejects requests with ErrBreakerOpen
// instead of invoking a failing engine repeatedly. Must be called before
// Start.
func (d *SharedEngineDispatcher) SetBreaker(b *breaker.Breaker) {
	d.breaker = b
}

// Start loads the engine in the background and starts the single
// serving worker. It must be called exactly once before Submit.
func (d *SharedEngineDispatcher) Start() {
	go d.loadEngine()
	go d.runWorker()
}

func (d *SharedEngineDispatcher) loadEngine() {
	defer close(d.ready)

	if d.cache != nil {
		if cached, ok := d.cache.Get(d.engineID); ok {
			d.bumpCache(true)
			d.engineMu.Lock()
			d.engine = cached
			d.engineMu.Unlock()
			return
		}
		d.bumpCache(false)
	}

	v, err, _ := loadGroup.Do(d.engineID, func() (any, error) {
		return d.loader()
	})
	if err != nil {
		d.loadMu.Lock()
		d.loadErr = err
		d.loadMu.Unlock()
		d.failed.Store(true)
		return
	}
	engine := v.(transcribe.Transcriber)

	if d.cache != nil {
		d.cache.Put(d.engineID, engine, d.promoteCold)
	}
	d.engineMu.Lock()
	d.engine = engine
	d.engineMu.Unlock()
}

func (d *SharedEngineDispatcher) bumpCache(hit bool) {
	d.statsMu.Lock()
	if hit {
		d.stats.CacheHits++
	} else {
		d.stats.CacheMisses++
	}
	d.statsMu.Unlock()

	dm := metrics.DefaultDispatch()
	if hit {
		dm.CacheHits.Add(context.Background(), 1)
	} else {
		dm.CacheMisses.Add(context.Background(), 1)
	}
}

func (d *SharedEngineDispatcher) runWorker() {
	defer close(d.workerDone)

	<-d.ready
	if d.failed.Load() {
		d.loadMu.Lock()
		err := fmt.Errorf("dispatch: model load failed: %w", d.loadErr)
		d.loadMu.Unlock()
		d.drainRemaining(err)
		return
	}

	for {
		item, ok := d.waitNext()
		if !ok {
			return
		}
		if item.req == stopSentinel {
			return
		}
		d.serve(item)
	}
}

// drainRemaining completes every already-queued request with err. It
// keeps draining until a Stop sentinel appears, since no more requests
// will be accepted once failed is set.
func (d *SharedEngineDispatcher) drainRemaining(err error) {
	for {
		item, ok := d.waitNext()
		if !ok {
			return
		}
		if item.req == stopSentinel {
			return
		}
		item.req.resultCh <- requestOutcome{Err: err}
	}
}

func (d *SharedEngineDispatcher) waitNext() (*queueItem, bool) {
	for {
		d.mu.Lock()
		if d.pq.Len() > 0 {
			item := heap.Pop(&d.pq).(*queueItem)
			d.wakePop()
			d.mu.Unlock()
			return item, true
		}
		wait := d.pushSignal
		d.mu.Unlock()
		<-wait
	}
}

func (d *SharedEngineDispatcher) serve(item *queueItem) {
	if d.breaker != nil && !d.breaker.Allow() {
		metrics.DefaultDispatch().RecordBreakerTrip(context.Background(), d.engineID)
		item.req.resultCh <- requestOutcome{Err: ErrBreakerOpen}
		return
	}

	start := time.Now()
	d.engineMu.RLock()
	text, confidence, err := d.engine.Transcribe(item.req.Audio, item.req.SampleRate)
	d.engineMu.RUnlock()
	elapsed := time.Since(start)

	if d.breaker != nil {
		if err != nil {
			d.breaker.RecordFailure()
		} else {
			d.breaker.RecordSuccess()
		}
	}

	metrics.DefaultDispatch().RecordEngineCall(context.Background(), d.engineID, elapsed.Seconds(), err)
	d.recordStats(item.req.SourceID, elapsed, err)
	if err != nil {
		slog.Error("dispatch: transcription failed", "source_id", item.req.SourceID, "err", err)
	}
	item.req.resultCh <- requestOutcome{Result: Result{Text: text, Confidence: confidence}, Err: err}
}

func (d *SharedEngineDispatcher) recordStats(sourceID string, elapsed time.Duration, err error) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	d.stats.TotalRequests++
	if err != nil {
		d.stats.Failures++
	} else {
		d.stats.Successes++
	}
	n := float64(d.stats.TotalRequests)
	ms := float64(elapsed.Microseconds()) / 1000.0
	d.stats.AvgProcessingMS += (ms - d.stats.AvgProcessingMS) / n

	if d.stats.PerSource == nil {
		d.stats.PerSource = make(map[string]uint64)
	}
	d.stats.PerSource[sourceID]++
}

// Stats returns a snapshot of dispatcher activity so far.
func (d *SharedEngineDispatcher) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	snap := d.stats
	snap.PerSource = make(map[string]uint64, len(d.stats.PerSource))
	for k, v := range d.stats.PerSource {
		snap.PerSource[k] = v
	}
	return snap
}

// SetSourcePriority sets the default priority used for requests from
// sourceID whose Priority field is left at zero.
func (d *SharedEngineDispatcher) SetSourcePriority(sourceID string, priority int) {
	d.overridesMu.Lock()
	defer d.overridesMu.Unlock()
	d.overrides[sourceID] = priority
}

func (d *SharedEngineDispatcher) sourcePriority(sourceID string) (int, bool) {
	d.overridesMu.Lock()
	defer d.overridesMu.Unlock()
	p, ok := d.overrides[sourceID]
	return p, ok
}

// Submit enqueues req and blocks until it is served or ctx is done. A
// permanently failed dispatcher (model load failure) rejects
// immediately.
func (d *SharedEngineDispatcher) Submit(ctx context.Context, req *TranscriptionRequest) (Result, error) {
	if d.failed.Load() {
		d.loadMu.Lock()
		err := d.loadErr
		d.loadMu.Unlock()
		return Result{}, fmt.Errorf("dispatch: engine load failed permanently: %w", err)
	}

	if req.Priority == 0 {
		if p, ok := d.sourcePriority(req.SourceID); ok {
			req.Priority = p
		}
	}
	item := &queueItem{
		req:               req,
		priority:          req.Priority,
		submissionCounter: atomic.AddUint64(&d.counter, 1),
	}
	if err := d.enqueue(ctx, item); err != nil {
		return Result{}, err
	}

	select {
	case outcome := <-req.resultCh:
		return outcome.Result, outcome.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (d *SharedEngineDispatcher) enqueue(ctx context.Context, item *queueItem) error {
	for {
		d.mu.Lock()
		if d.closed.Load() {
			d.mu.Unlock()
			return ErrDispatcherStopped
		}
		if d.capacity <= 0 || d.pq.Len() < d.capacity {
			heap.Push(&d.pq, item)
			d.wakePush()
			d.mu.Unlock()
			return nil
		}
		wait := d.popSignal
		d.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wakePush and wakePop must be called with d.mu held.
func (d *SharedEngineDispatcher) wakePush() {
	close(d.pushSignal)
	d.pushSignal = make(chan struct{})
}

func (d *SharedEngineDispatcher) wakePop() {
	close(d.popSignal)
	d.popSignal = make(chan struct{})
}

// Stop enqueues a sentinel, waits for the worker to drain the queue and
// exit, then cleans up the engine. Safe to call multiple times.
func (d *SharedEngineDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed.Store(true)
		heap.Push(&d.pq, &queueItem{
			req:               stopSentinel,
			priority:          math.MaxInt32,
			submissionCounter: atomic.AddUint64(&d.counter, 1),
		})
		d.wakePush()
		d.mu.Unlock()

		<-d.workerDone

		d.engineMu.RLock()
		engine := d.engine
		d.engineMu.RUnlock()
		if engine != nil {
			if err := engine.Cleanup(); err != nil {
				slog.Warn("dispatch: engine cleanup failed", "engine_id", d.engineID, "err", err)
			}
		}
	})
}
