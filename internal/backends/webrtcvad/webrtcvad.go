// Package webrtcvad provides a VADBackend sized to the frame lengths the
// WebRTC VAD codec uses (10/20/30ms at 16kHz: 160/320/480 samples), so
// the pipeline can be driven by a backend with a different frame size
// than the energy backend's 512 samples without any other component
// changing. It does not link the actual GSM-derived WebRTC VAD codec —
// no binding for it is present anywhere in the retrieval pack's
// dependency surface — and falls back to the same RMS-energy classifier
// as pkg/vad.EnergyBackend, scaled per mode.
package webrtcvad

import (
	"fmt"
	"math"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/vad"
)

// validFrameSizes are the only frame lengths (at 16kHz) the real WebRTC
// VAD codec accepts: 10ms, 20ms, 30ms.
var validFrameSizes = map[int]bool{160: true, 320: true, 480: true}

func init() {
	registry.VAD.Register("webrtc", func(config map[string]string) (vad.Backend, error) {
		frameSize := 480
		if v := config["frame_size"]; v != "" {
			fmt.Sscanf(v, "%d", &frameSize)
		}
		mode := 2
		if v := config["mode"]; v != "" {
			fmt.Sscanf(v, "%d", &mode)
		}
		return New(frameSize, mode)
	})
}

// Backend approximates the WebRTC VAD's aggressiveness modes (0-3, least
// to most aggressive) by scaling the energy threshold used to convert
// RMS energy into a probability.
type Backend struct {
	frameSize int
	mode      int
}

// New validates frameSize against the codec's three legal frame lengths
// and builds a Backend at the given aggressiveness mode (0-3).
func New(frameSize, mode int) (*Backend, error) {
	if !validFrameSizes[frameSize] {
		return nil, fmt.Errorf("webrtcvad: frame size must be 160, 320, or 480 samples, got %d", frameSize)
	}
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("webrtcvad: mode must be in [0,3], got %d", mode)
	}
	return &Backend{frameSize: frameSize, mode: mode}, nil
}

func (b *Backend) Process(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range frame {
		sumSquares += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSquares / float64(len(frame)))

	// Higher aggressiveness modes require more energy before reporting
	// speech, mirroring the real codec's stricter false-positive modes.
	fullScale := 0.1 + 0.05*float64(b.mode)
	p := rms / fullScale
	if p > 1 {
		p = 1
	}
	return float32(p)
}

func (b *Backend) Reset() {}

func (b *Backend) FrameSize() int { return b.frameSize }

func (b *Backend) Name() string { return "webrtc" }
