package audio

import "time"

// Source produces a sequence of fixed-size mono PCM chunks. Implementations
// are safe to Stop concurrently with a blocked Read.
type Source interface {
	// Start begins producing chunks. It returns once the source is ready
	// to be Read from (a file is decoded and buffered; a microphone
	// stream is opened).
	Start() error

	// Stop releases any underlying resources. Read returns (Chunk{}, false)
	// for every call after Stop.
	Stop() error

	// Read blocks for up to timeout waiting for the next chunk. It
	// returns false once the source is exhausted (end of file) or
	// stopped.
	Read(timeout time.Duration) (Chunk, bool)

	// SampleRate reports the rate of chunks returned by Read.
	SampleRate() uint32

	// ChunkMs reports the nominal duration, in milliseconds, of each chunk
	// returned by Read (the final chunk of a File source may be
	// zero-padded to this duration).
	ChunkMs() int
}
