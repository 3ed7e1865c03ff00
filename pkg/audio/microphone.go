package audio

import (
	"log/slog"
	"sync"
	"time"
)

// CaptureFunc delivers raw mono samples from a live capture backend. The
// pack carries no cgo audio driver, so Microphone is backend-agnostic: a
// caller supplies whatever produces samples (a platform driver, a test
// generator, a network feed) and Microphone handles buffering and
// backpressure.
type CaptureFunc func(deliver func(samples []float32))

// Microphone is an AudioSource backed by a live capture callback. Captured
// samples are accumulated into a bounded ring of fixed-size chunks; if the
// consumer falls behind, the oldest buffered chunk is dropped rather than
// blocking the capture callback, and the drop count is logged.
type Microphone struct {
	capture    CaptureFunc
	sampleRate uint32
	chunkMs    int
	capacity   int

	mu      sync.Mutex
	buf     [][]float32
	carry   []float32
	closed  bool
	dropped uint64
	notify  chan struct{}
}

// NewMicrophone creates a Microphone source. capacity bounds the number of
// undelivered chunks held in the ring before the oldest is dropped.
func NewMicrophone(capture CaptureFunc, sampleRate uint32, chunkMs int, capacity int) *Microphone {
	if capacity <= 0 {
		capacity = 8
	}
	return &Microphone{
		capture:    capture,
		sampleRate: sampleRate,
		chunkMs:    chunkMs,
		capacity:   capacity,
		notify:     make(chan struct{}),
	}
}

// wake closes the current notify channel and replaces it, releasing any
// Read blocked in a select on the old one. Must be called with mu held.
func (m *Microphone) wake() {
	close(m.notify)
	m.notify = make(chan struct{})
}

// Start launches the capture callback in the background. deliver slices
// incoming samples into fixed-size chunks and pushes them onto the ring.
func (m *Microphone) Start() error {
	chunkSize := int(m.sampleRate) * m.chunkMs / 1000
	if chunkSize <= 0 {
		chunkSize = int(m.sampleRate)
	}

	deliver := func(samples []float32) {
		m.mu.Lock()
		m.carry = append(m.carry, samples...)
		for len(m.carry) >= chunkSize {
			chunk := make([]float32, chunkSize)
			copy(chunk, m.carry[:chunkSize])
			m.carry = m.carry[chunkSize:]

			if len(m.buf) >= m.capacity {
				m.buf = m.buf[1:]
				m.dropped++
				slog.Warn("audio: microphone ring full, dropping oldest chunk",
					slog.Uint64("total_dropped", m.dropped))
			}
			m.buf = append(m.buf, chunk)
			m.wake()
		}
		m.mu.Unlock()
	}

	go m.capture(deliver)
	return nil
}

// Stop marks the source closed and wakes any blocked Read.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	m.closed = true
	m.wake()
	m.mu.Unlock()
	return nil
}

// Read blocks for up to timeout for the next chunk in the ring.
func (m *Microphone) Read(timeout time.Duration) (Chunk, bool) {
	deadline := time.Now().Add(timeout)

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return Chunk{}, false
		}
		if len(m.buf) > 0 {
			samples := m.buf[0]
			m.buf = m.buf[1:]
			m.mu.Unlock()
			return Chunk{Samples: samples, SampleRate: m.sampleRate}, true
		}
		wait := m.notify
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Chunk{}, false
		}
		select {
		case <-wait:
		case <-time.After(remaining):
			return Chunk{}, false
		}
	}
}

// SampleRate returns the configured capture rate.
func (m *Microphone) SampleRate() uint32 { return m.sampleRate }

// ChunkMs returns the configured chunk duration in milliseconds.
func (m *Microphone) ChunkMs() int { return m.chunkMs }

// Dropped returns the number of chunks discarded due to ring overflow.
func (m *Microphone) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
