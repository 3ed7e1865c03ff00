package audio

import (
	"os"
	"sync"
	"time"
)

// File is an AudioSource that reads an entire WAV file, down-mixes it to
// mono, resamples it to the requested rate, and yields it as fixed-size
// chunks. The final chunk is zero-padded to a full chunk if the decoded
// audio does not divide evenly.
type File struct {
	path       string
	sampleRate uint32
	chunkMs    int
	realtime   bool

	mu      sync.Mutex
	chunks  []Chunk
	pos     int
	stopped bool
}

// NewFile creates a File source. If realtime is true, Read paces delivery
// to roughly chunkMs wall-clock time per chunk, as if the file were a live
// capture; otherwise chunks are available as fast as the caller drains
// them.
func NewFile(path string, sampleRate uint32, chunkMs int, realtime bool) *File {
	return &File{path: path, sampleRate: sampleRate, chunkMs: chunkMs, realtime: realtime}
}

// Start decodes the file, down-mixes and resamples it, and slices it into
// fixed-size chunks ready for Read.
func (f *File) Start() error {
	file, err := os.Open(f.path)
	if err != nil {
		return &SourceOpenError{Target: f.path, Err: err}
	}
	defer file.Close()

	interleaved, format, err := decodeWAV(file)
	if err != nil {
		return &SourceOpenError{Target: f.path, Err: err}
	}

	mono := downmixToMono(interleaved, format.channels)
	if format.sampleRate != f.sampleRate {
		up, down := Ratio(format.sampleRate, f.sampleRate)
		mono = ResampleRatio(mono, up, down)
	}

	chunkSize := int(f.sampleRate) * f.chunkMs / 1000
	if chunkSize <= 0 {
		chunkSize = int(f.sampleRate)
	}

	var chunks []Chunk
	for i := 0; i < len(mono); i += chunkSize {
		end := i + chunkSize
		var samples []float32
		if end <= len(mono) {
			samples = make([]float32, chunkSize)
			copy(samples, mono[i:end])
		} else {
			samples = make([]float32, chunkSize)
			copy(samples, mono[i:])
		}
		chunks = append(chunks, Chunk{Samples: samples, SampleRate: f.sampleRate})
	}

	f.mu.Lock()
	f.chunks = chunks
	f.pos = 0
	f.stopped = false
	f.mu.Unlock()
	return nil
}

// Stop marks the source as exhausted. Reading an already-started File is
// cheap to stop early; it simply discards the remaining in-memory chunks.
func (f *File) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}

// Read returns the next buffered chunk, optionally pacing delivery to
// simulate realtime capture. timeout is accepted for interface parity but
// is never the limiting factor since File never blocks waiting on input.
func (f *File) Read(timeout time.Duration) (Chunk, bool) {
	f.mu.Lock()
	if f.stopped || f.pos >= len(f.chunks) {
		f.mu.Unlock()
		return Chunk{}, false
	}
	c := f.chunks[f.pos]
	f.pos++
	f.mu.Unlock()

	if f.realtime {
		time.Sleep(time.Duration(f.chunkMs) * time.Millisecond)
	}
	return c, true
}

// SampleRate returns the configured target sample rate.
func (f *File) SampleRate() uint32 { return f.sampleRate }

// ChunkMs returns the configured chunk duration in milliseconds.
func (f *File) ChunkMs() int { return f.chunkMs }
