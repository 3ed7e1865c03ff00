package vad

import "math"

// EnergyBackend is a dependency-free VADBackend that scores frames by
// normalized RMS energy. It produces a continuous probability rather than
// a debounced event — all hysteresis and timing lives in the state
// machine, not here.
type EnergyBackend struct {
	frameSize int
	// fullScale is the RMS value treated as probability 1.0; energy is
	// scaled linearly and clamped to [0, 1] below that.
	fullScale float32
}

// NewEnergyBackend creates an EnergyBackend for the given frame size (in
// samples, at 16kHz). fullScale calibrates what counts as "loud"; 0.2 is a
// reasonable default for normalized [-1, 1] float32 PCM.
func NewEnergyBackend(frameSize int, fullScale float32) *EnergyBackend {
	if fullScale <= 0 {
		fullScale = 0.2
	}
	return &EnergyBackend{frameSize: frameSize, fullScale: fullScale}
}

// Process returns the frame's RMS energy, linearly scaled against
// fullScale and clamped to [0, 1].
func (e *EnergyBackend) Process(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range frame {
		sumSquares += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSquares / float64(len(frame)))
	p := float32(rms) / e.fullScale
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Reset is a no-op; EnergyBackend carries no state across frames.
func (e *EnergyBackend) Reset() {}

// FrameSize returns the configured frame length in samples.
func (e *EnergyBackend) FrameSize() int { return e.frameSize }

// Name identifies this backend for logging and registry lookup.
func (e *EnergyBackend) Name() string { return "energy" }
