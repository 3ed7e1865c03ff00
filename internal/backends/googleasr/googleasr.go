// Package googleasr implements transcribe.Transcriber against the Google
// Cloud Speech-to-Text REST API.
package googleasr

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/internal/restutil"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.ASR.Register("google", func(config map[string]string) (transcribe.Transcriber, error) {
		apiKey := config["google_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("googleasr: api key required (set google_api_key)")
		}
		model := config["model"]
		if model == "" {
			model = "latest_long"
		}
		lang := config["language"]
		if lang == "" {
			lang = "en-US"
		}
		return &Engine{apiKey: apiKey, model: model, language: lang}, nil
	})
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	Model           string `json:"model"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float32 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Engine implements transcribe.Transcriber by posting base64-encoded
// 16-bit PCM to Google's synchronous recognize endpoint for each segment.
type Engine struct {
	apiKey   string
	model    string
	language string
}

func (e *Engine) Transcribe(audio []float32, sampleRate uint32) (string, float32, error) {
	pcm := encodePCM16(audio)

	apiURL := "https://speech.googleapis.com/v1/speech:recognize?key=" + e.apiKey
	req := recognizeRequest{
		Config: recognizeConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: int(sampleRate),
			LanguageCode:    e.language,
			Model:           e.model,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(pcm)},
	}

	// Transcriber has no ctx parameter of its own; see deepgram's
	// equivalent call for the same reasoning.
	var resp recognizeResponse
	if err := restutil.DoJSON(context.Background(), "POST", apiURL, nil, req, &resp); err != nil {
		return "", 0, fmt.Errorf("googleasr: %w", err)
	}

	if len(resp.Results) > 0 && len(resp.Results[0].Alternatives) > 0 {
		alt := resp.Results[0].Alternatives[0]
		return alt.Transcript, alt.Confidence, nil
	}
	return "", 0, nil
}

func (e *Engine) RequiredSampleRate() uint32 { return 16000 }
func (e *Engine) EngineName() string         { return "google" }
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
