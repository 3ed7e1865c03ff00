// Package deepgram implements transcribe.Transcriber against the
// Deepgram REST API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/internal/restutil"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.ASR.Register("deepgram", func(config map[string]string) (transcribe.Transcriber, error) {
		apiKey := config["deepgram_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("deepgram: api key required (set deepgram_api_key)")
		}
		model := config["model"]
		if model == "" {
			model = "nova-2"
		}
		lang := config["language"]
		if lang == "" {
			lang = "en"
		}
		return &Engine{apiKey: apiKey, model: model, language: lang}, nil
	})
}

type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float32 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Engine implements transcribe.Transcriber by posting 16-bit PCM to
// Deepgram's batch recognize endpoint for each segment.
type Engine struct {
	apiKey   string
	model    string
	language string
}

func (e *Engine) Transcribe(audio []float32, sampleRate uint32) (string, float32, error) {
	pcm := encodePCM16(audio)

	params := url.Values{}
	params.Set("model", e.model)
	params.Set("language", e.language)
	params.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	apiURL := "https://api.deepgram.com/v1/listen?" + params.Encode()

	headers := map[string]string{
		"Authorization": "Token " + e.apiKey,
		"Content-Type":  fmt.Sprintf("audio/l16;rate=%d;channels=1", sampleRate),
	}

	// Transcriber has no ctx parameter of its own; Transcribe is called
	// from a StreamTranscriber pool task or a dispatcher worker, neither of
	// which supplies a deadline, so only the HTTP client's own timeout
	// bounds the call here.
	body, err := restutil.DoRaw(context.Background(), "POST", apiURL, headers, bytes.NewReader(pcm))
	if err != nil {
		return "", 0, fmt.Errorf("deepgram: %w", err)
	}
	defer body.Close()

	var resp response
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", 0, fmt.Errorf("deepgram: decode response: %w", err)
	}

	if len(resp.Results.Channels) > 0 && len(resp.Results.Channels[0].Alternatives) > 0 {
		alt := resp.Results.Channels[0].Alternatives[0]
		return alt.Transcript, alt.Confidence, nil
	}
	return "", 0, nil
}

func (e *Engine) RequiredSampleRate() uint32 { return 16000 }
func (e *Engine) EngineName() string         { return "deepgram" }
func (e *Engine) Cleanup() error             { return nil }

func encodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	return buf
}
