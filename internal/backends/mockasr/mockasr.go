// Package mockasr provides a deterministic Transcriber for tests and
// local development that require no model download or network access.
package mockasr

import (
	"fmt"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.ASR.Register("mock", func(config map[string]string) (transcribe.Transcriber, error) {
		text := config["text"]
		if text == "" {
			text = "mock transcription"
		}
		return &Engine{fixedText: text}, nil
	})
}

// Engine returns a fixed or length-derived transcript for every call, so
// pipeline tests can assert on segment boundaries without a real model.
type Engine struct {
	fixedText string
}

// Transcribe returns fixedText unless it is empty, in which case it
// reports the sample count so callers can tell segments apart.
func (e *Engine) Transcribe(audio []float32, sampleRate uint32) (string, float32, error) {
	if len(audio) == 0 {
		return "", 0, nil
	}
	if e.fixedText != "" {
		return e.fixedText, 1.0, nil
	}
	return fmt.Sprintf("samples=%d", len(audio)), 1.0, nil
}

func (e *Engine) RequiredSampleRate() uint32 { return 16000 }
func (e *Engine) EngineName() string         { return "mock" }
func (e *Engine) Cleanup() error             { return nil }
