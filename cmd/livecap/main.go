// Command livecap is a CLI boundary adapter: it reads a WAV file through
// the streaming pipeline and writes final captions to stdout, either as
// plain text or as SRT.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/pitabwire/frame/config"

	livecapconfig "github.com/livecap/livecap-core/config"
	"github.com/livecap/livecap-core/internal/breaker"
	"github.com/livecap/livecap-core/internal/captionbus"
	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/audio"
	"github.com/livecap/livecap-core/pkg/subtitle"
	"github.com/livecap/livecap-core/pkg/transcribe"
	"github.com/livecap/livecap-core/pkg/vad"

	// Backend adapters register themselves via init().
	_ "github.com/livecap/livecap-core/internal/backends/deepgram"
	_ "github.com/livecap/livecap-core/internal/backends/energyvad"
	_ "github.com/livecap/livecap-core/internal/backends/googleasr"
	_ "github.com/livecap/livecap-core/internal/backends/googletranslate"
	_ "github.com/livecap/livecap-core/internal/backends/mockasr"
	_ "github.com/livecap/livecap-core/internal/backends/mocktranslator"
	_ "github.com/livecap/livecap-core/internal/backends/webrtcvad"
	_ "github.com/livecap/livecap-core/internal/backends/whisper"
)

func main() {
	inputPath := flag.String("input", "", "path to a WAV file to transcribe")
	sourceLang := flag.String("source-lang", "en", "source language (BCP-47 or ISO 639-1)")
	targetLang := flag.String("target-lang", "", "target language; empty disables translation")
	asrBackend := flag.String("asr", "mock", "registered ASR backend name")
	vadBackend := flag.String("vad", "energy", "registered VAD backend name")
	translatorBackend := flag.String("translator", "", "registered translator backend name; empty disables translation")
	srtOut := flag.Bool("srt", false, "write SRT instead of plain text")
	chunkMs := flag.Int("chunk-ms", 20, "chunk duration fed to the pipeline")
	tuningPath := flag.String("tuning", "", "path to a YAML file overriding VAD/translation tuning")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("livecap: -input is required")
	}

	ctx := context.Background()
	cfg, err := config.LoadWithOIDC[livecapconfig.CoreConfig](ctx)
	if err != nil {
		log.Fatalf("livecap: loading config: %v", err)
	}

	modelsDir, err := cfg.ModelsDir()
	if err != nil {
		log.Fatalf("livecap: resolving models dir: %v", err)
	}
	serviceConfig := map[string]string{
		"deepgram_api_key": cfg.DeepgramAPIKey,
		"api_key":          cfg.DeepgramAPIKey,
		"google_api_key":   cfg.GoogleAPIKey,
		"models_dir":       modelsDir,
	}

	vadImpl, err := registry.VAD.Create(*vadBackend, serviceConfig)
	if err != nil {
		log.Fatalf("livecap: resolving VAD backend %q: %v", *vadBackend, err)
	}

	asrImpl, err := registry.ASR.Create(*asrBackend, serviceConfig)
	if err != nil {
		log.Fatalf("livecap: resolving ASR backend %q: %v", *asrBackend, err)
	}

	tuning := vad.DefaultConfig()
	translationTimeout := cfg.TranslationTimeout()
	if *tuningPath != "" {
		loader := livecapconfig.NewTuningLoader(*tuningPath)
		if err := loader.Load(); err != nil {
			log.Fatalf("livecap: loading tuning file: %v", err)
		}
		tuning = loader.Current().VAD
		if loader.Current().TranslationTimeout > 0 {
			translationTimeout = time.Duration(loader.Current().TranslationTimeout * float64(time.Second))
		}
	}

	var translatorImpl transcribe.Translator
	if *translatorBackend != "" && *targetLang != "" {
		translatorImpl, err = registry.Translators.Create(*translatorBackend, serviceConfig)
		if err != nil {
			log.Fatalf("livecap: resolving translator backend %q: %v", *translatorBackend, err)
		}
	}

	bus := captionbus.New()
	subID := "stdout"
	sub := bus.Subscribe(subID, 64)
	defer bus.Unsubscribe(subID)

	tcfg := transcribe.Config{
		SourceID:           *inputPath,
		SourceLang:         *sourceLang,
		TargetLang:         *targetLang,
		TranslationTimeout: translationTimeout,
	}
	st := transcribe.New(tcfg, vadImpl, tuning, asrImpl, translatorImpl, nil)
	defer st.Close()
	if translatorImpl != nil {
		st.SetTranslatorBreaker(breaker.New(breaker.Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second, HalfOpenMaxAttempts: 1}))
	}

	index := 1
	st.OnResult(func(r transcribe.TranscriptionResult) {
		if err := bus.Emit(captionbus.EventFinal, r.SourceID, r); err != nil {
			slog.Warn("livecap: emitting caption event failed", "err", err)
		}
	})

	go func() {
		for envelope := range sub {
			var result transcribe.TranscriptionResult
			if err := decodeEnvelope(envelope, &result); err != nil {
				continue
			}
			writeResult(result, index, *srtOut)
			index++
		}
	}()

	source := audio.NewFile(*inputPath, vad.BackendRate, *chunkMs, false)
	if err := st.RunSync(source); err != nil {
		log.Fatalf("livecap: %v", err)
	}

	// Give the subscriber goroutine a moment to drain the final event
	// before exiting; RunSync has already returned all results.
	time.Sleep(50 * time.Millisecond)
}

func decodeEnvelope(env captionbus.Envelope, out *transcribe.TranscriptionResult) error {
	return json.Unmarshal(env.Data, out)
}

func writeResult(r transcribe.TranscriptionResult, index int, srtOut bool) {
	text := r.Text
	if r.TranslatedText != nil {
		text = *r.TranslatedText
	}
	if srtOut {
		fmt.Print(subtitle.Encode(subtitle.Entry{Index: index, StartS: r.TStartS, EndS: r.TEndS, Text: text}))
		return
	}
	fmt.Printf("[%.2f-%.2f] %s\n", r.TStartS, r.TEndS, text)
}
