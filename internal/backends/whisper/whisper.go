// Package whisper is a local-model Transcriber slot for a whisper.cpp
// style offline engine. No Go binding for the C library is present
// anywhere in the retrieval pack, so Transcribe returns a fixed
// placeholder string rather than linking cgo — the pooling and model
// resolution around it are real and are what would be exercised once a
// binding is wired in.
package whisper

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.ASR.Register("whisper", func(config map[string]string) (transcribe.Transcriber, error) {
		modelPath := config["model_path"]
		if modelPath == "" {
			if m := config["model"]; m != "" {
				modelPath = config["models_dir"] + "/" + m + ".bin"
			} else {
				modelPath = config["models_dir"] + "/ggml-base.bin"
			}
		}
		poolSize := 2
		if s := config["pool_size"]; s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				poolSize = v
			}
		}
		return New(modelPath, poolSize)
	})
}

// Engine implements transcribe.Transcriber against a pool of model slots.
// Each Transcribe call claims a slot for the duration of the call, so at
// most poolSize transcriptions run concurrently.
type Engine struct {
	modelPath string
	slots     chan struct{}

	mu     sync.Mutex
	closed bool
}

// New creates an Engine with poolSize concurrent model slots.
func New(modelPath string, poolSize int) (*Engine, error) {
	if poolSize <= 0 {
		poolSize = 2
	}
	slots := make(chan struct{}, poolSize)
	for i := 0; i < poolSize; i++ {
		slots <- struct{}{}
	}
	return &Engine{modelPath: modelPath, slots: slots}, nil
}

func (e *Engine) Transcribe(audio []float32, sampleRate uint32) (string, float32, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", 0, fmt.Errorf("whisper: engine closed")
	}
	if len(audio) == 0 {
		return "", 0, nil
	}

	<-e.slots
	defer func() { e.slots <- struct{}{} }()

	return "[whisper transcription placeholder]", 0, nil
}

func (e *Engine) RequiredSampleRate() uint32 { return 16000 }
func (e *Engine) EngineName() string         { return "whisper" }

func (e *Engine) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
