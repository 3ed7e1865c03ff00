// Package energyvad registers pkg/vad's dependency-free EnergyBackend
// under the name "energy", so it is selectable through the same
// registry as every other VADBackend rather than constructed directly.
package energyvad

import (
	"fmt"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/vad"
)

func init() {
	registry.VAD.Register("energy", func(config map[string]string) (vad.Backend, error) {
		frameSize := 512
		if v := config["frame_size"]; v != "" {
			fmt.Sscanf(v, "%d", &frameSize)
		}
		fullScale := float32(0.1)
		if v := config["full_scale"]; v != "" {
			fmt.Sscanf(v, "%f", &fullScale)
		}
		return vad.NewEnergyBackend(frameSize, fullScale), nil
	})
}
