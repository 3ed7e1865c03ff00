package vad

// BackendRate is the sample rate every Backend and the StateMachine
// operate at. Audio sources are resampled to this rate before framing.
const BackendRate uint32 = 16000

// Backend is the capability required of every speech-probability
// classifier: Silero (512-sample frames, ML), WebRTC (160/320/480-sample
// frames, modes 0-3), TEN (configurable hop) are all observed shapes. The
// state machine is agnostic to which variant is installed.
type Backend interface {
	// Process returns the probability, in [0, 1], that frame contains
	// speech. len(frame) must equal FrameSize().
	Process(frame []float32) float32

	// Reset clears any internal state (e.g. a recurrent model's hidden
	// state).
	Reset()

	// FrameSize is the fixed number of samples Process expects, at 16kHz.
	FrameSize() int

	// Name identifies the backend for logging and registry lookup.
	Name() string
}
