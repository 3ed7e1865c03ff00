package transcribe

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/livecap/livecap-core/internal/breaker"
	"github.com/livecap/livecap-core/pkg/audio"
	"github.com/livecap/livecap-core/pkg/vad"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	text  string
	rate  uint32
	err   error
}

func (f *fakeTranscriber) Transcribe(a []float32, sampleRate uint32) (string, float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", 0, f.err
	}
	if f.text != "" {
		return f.text, 0.9, nil
	}
	return fmt.Sprintf("text-%d-samples", len(a)), 0.9, nil
}
func (f *fakeTranscriber) RequiredSampleRate() uint32 {
	if f.rate != 0 {
		return f.rate
	}
	return vad.BackendRate
}
func (f *fakeTranscriber) EngineName() string { return "fake" }
func (f *fakeTranscriber) Cleanup() error     { return nil }

type fakeTranslator struct {
	mu          sync.Mutex
	calls       int
	failNetwork int
	lastContext []string
	// delay, when > 0, makes Translate sleep before returning,
	// ignoring ctx entirely — simulating a backend that does not honor
	// cancellation, so callers must enforce their own deadline.
	delay time.Duration
}

func (f *fakeTranslator) Translate(ctx context.Context, text, srcLang, tgtLang string, ctxSentences []string) (TranslationResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastContext = ctxSentences
	shouldFail := f.failNetwork > 0
	if shouldFail {
		f.failNetwork--
	}
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if shouldFail {
		return TranslationResult{}, &TranslationError{Kind: NetworkError, Err: fmt.Errorf("network blip")}
	}
	return TranslationResult{Text: "translated:" + text, SrcLang: srcLang, TgtLang: tgtLang}, nil
}
func (f *fakeTranslator) SupportedPairs() []LangPair   { return nil }
func (f *fakeTranslator) DefaultContextSentences() int { return 2 }
func (f *fakeTranslator) Initialised() bool            { return true }
func (f *fakeTranslator) LoadModel() error             { return nil }
func (f *fakeTranslator) Cleanup() error               { return nil }

func speechChunk(samples int) audio.Chunk {
	buf := make([]float32, samples)
	for i := range buf {
		buf[i] = 0.8
	}
	return audio.Chunk{Samples: buf, SampleRate: vad.BackendRate}
}

func silenceChunk(samples int) audio.Chunk {
	return audio.Chunk{Samples: make([]float32, samples), SampleRate: vad.BackendRate}
}

func newTestStreamTranscriber(t *testing.T, asr Transcriber, translator Translator) *StreamTranscriber {
	t.Helper()
	backend := vad.NewEnergyBackend(512, 0.2)
	vcfg := vad.Config{
		Threshold:            0.5,
		MinSpeechMs:          50,
		MinSilenceMs:         50,
		SpeechPadMs:          0,
		InterimMinDurationMs: 100000,
		InterimIntervalMs:    100000,
	}
	cfg := Config{SourceID: "src-1", SourceLang: "en", TargetLang: "es", WorkerPoolSize: 1, ResultBufferSize: 4}
	st := New(cfg, backend, vcfg, asr, translator, nil)
	t.Cleanup(st.Close)
	return st
}

func TestFeedAudioProducesFinalResult(t *testing.T) {
	asr := &fakeTranscriber{}
	st := newTestStreamTranscriber(t, asr, nil)

	if err := st.FeedAudio(speechChunk(512 * 20)); err != nil {
		t.Fatalf("FeedAudio speech: %v", err)
	}
	if err := st.FeedAudio(silenceChunk(512 * 20)); err != nil {
		t.Fatalf("FeedAudio silence: %v", err)
	}

	result, ok := st.GetResult(2 * time.Second)
	if !ok {
		t.Fatal("expected a final result")
	}
	if result.SourceID != "src-1" {
		t.Errorf("got source id %q, want src-1", result.SourceID)
	}
	if result.Text == "" {
		t.Error("expected non-empty text")
	}
}

func TestFeedAudioAfterCloseReturnsError(t *testing.T) {
	st := newTestStreamTranscriber(t, &fakeTranscriber{}, nil)
	st.Close()

	if err := st.FeedAudio(speechChunk(512)); err == nil {
		t.Error("expected error after Close")
	}
}

func TestFinalResultIsTranslated(t *testing.T) {
	asr := &fakeTranscriber{}
	translator := &fakeTranslator{}
	st := newTestStreamTranscriber(t, asr, translator)

	_ = st.FeedAudio(speechChunk(512 * 20))
	_ = st.FeedAudio(silenceChunk(512 * 20))

	result, ok := st.GetResult(2 * time.Second)
	if !ok {
		t.Fatal("expected a final result")
	}
	if result.TranslatedText == nil {
		t.Fatal("expected TranslatedText to be set")
	}
	if got, want := *result.TranslatedText, "translated:"+result.Text; got != want {
		t.Errorf("got translated text %q, want %q", got, want)
	}
	if result.TargetLang == nil || *result.TargetLang != "es" {
		t.Errorf("got target lang %v, want es", result.TargetLang)
	}
}

func TestTranslationFailureStillEmitsResult(t *testing.T) {
	asr := &fakeTranscriber{}
	translator := &fakeTranslator{failNetwork: 5}
	st := newTestStreamTranscriber(t, asr, translator)

	_ = st.FeedAudio(speechChunk(512 * 20))
	_ = st.FeedAudio(silenceChunk(512 * 20))

	// Three attempts with jittered 1s and 2s backoff between them take up
	// to about 4.5s; the default 10s translation deadline bounds the wait.
	result, ok := st.GetResult(DefaultTranslationTimeout + 2*time.Second)
	if !ok {
		t.Fatal("expected a final result despite translation failure")
	}
	if result.TranslatedText != nil {
		t.Error("expected nil TranslatedText after exhausted retries")
	}
}

func TestTranslatorBreakerOpenSkipsTranslatorCall(t *testing.T) {
	asr := &fakeTranscriber{}
	translator := &fakeTranslator{}
	st := newTestStreamTranscriber(t, asr, translator)
	st.SetTranslatorBreaker(breaker.New(breaker.Config{FailureThreshold: 1, ResetTimeout: time.Minute, HalfOpenMaxAttempts: 1}))
	st.translatorBreaker.RecordFailure()

	_ = st.FeedAudio(speechChunk(512 * 20))
	_ = st.FeedAudio(silenceChunk(512 * 20))

	result, ok := st.GetResult(2 * time.Second)
	if !ok {
		t.Fatal("expected a final result despite open breaker")
	}
	if result.TranslatedText != nil {
		t.Error("expected nil TranslatedText while breaker is open")
	}
	translator.mu.Lock()
	calls := translator.calls
	translator.mu.Unlock()
	if calls != 0 {
		t.Errorf("translator was called %d times with breaker open, want 0", calls)
	}
}

// TestTranslationTimeoutAbandonsSlowTranslator covers a translator that
// ignores ctx and blocks well past the deadline: the deadline must be
// enforced caller-side, the call is abandoned rather than awaited, the
// context window still advances, and the pipeline does not stall for
// the translator's full delay.
func TestTranslationTimeoutAbandonsSlowTranslator(t *testing.T) {
	asr := &fakeTranscriber{}
	translator := &fakeTranslator{delay: 500 * time.Millisecond}
	backend := vad.NewEnergyBackend(512, 0.2)
	vcfg := vad.Config{
		Threshold:            0.5,
		MinSpeechMs:          50,
		MinSilenceMs:         50,
		SpeechPadMs:          0,
		InterimMinDurationMs: 100000,
		InterimIntervalMs:    100000,
	}
	cfg := Config{
		SourceID:           "src-1",
		SourceLang:         "en",
		TargetLang:         "es",
		WorkerPoolSize:     1,
		ResultBufferSize:   4,
		TranslationTimeout: 50 * time.Millisecond,
	}
	st := New(cfg, backend, vcfg, asr, translator, nil)
	t.Cleanup(st.Close)

	start := time.Now()
	_ = st.FeedAudio(speechChunk(512 * 20))
	_ = st.FeedAudio(silenceChunk(512 * 20))

	result, ok := st.GetResult(2 * time.Second)
	elapsed := time.Since(start)
	if !ok {
		t.Fatal("expected a final result despite the slow translator")
	}
	if result.TranslatedText != nil {
		t.Error("expected nil TranslatedText once the deadline is abandoned")
	}
	if elapsed >= translator.delay {
		t.Errorf("pipeline stalled for %v, want well under the translator's %v delay", elapsed, translator.delay)
	}

	st.ctxMu.Lock()
	windowLen := st.ctxWindow.Len()
	st.ctxMu.Unlock()
	if windowLen == 0 {
		t.Error("expected the context window to still grow on a timed-out translation")
	}
}

func TestContextWindowGrowsAndIsCapped(t *testing.T) {
	asr := &fakeTranscriber{text: "hello there"}
	translator := &fakeTranslator{}
	st := newTestStreamTranscriber(t, asr, translator)

	for i := 0; i < 3; i++ {
		_ = st.FeedAudio(speechChunk(512 * 20))
		_ = st.FeedAudio(silenceChunk(512 * 20))
		if _, ok := st.GetResult(2 * time.Second); !ok {
			t.Fatalf("round %d: expected a final result", i)
		}
	}

	st.ctxMu.Lock()
	n := st.ctxWindow.Len()
	st.ctxMu.Unlock()
	if n != 3 {
		t.Errorf("got context window length %d, want 3", n)
	}

	st.ctxMu.Lock()
	for i := 0; i < 2*MaxContextBuffer; i++ {
		st.ctxWindow.Append("filler")
	}
	n = st.ctxWindow.Len()
	st.ctxMu.Unlock()
	if n != MaxContextBuffer {
		t.Errorf("got context window length %d, want cap %d", n, MaxContextBuffer)
	}
}

func TestGetResultTimesOutWhenIdle(t *testing.T) {
	st := newTestStreamTranscriber(t, &fakeTranscriber{}, nil)

	if _, ok := st.GetResult(20 * time.Millisecond); ok {
		t.Error("expected timeout with no audio fed")
	}
}

func TestFinalizeFlushesInProgressUtterance(t *testing.T) {
	asr := &fakeTranscriber{}
	st := newTestStreamTranscriber(t, asr, nil)

	if err := st.FeedAudio(speechChunk(512 * 20)); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}

	result, ok := st.Finalize()
	if !ok {
		t.Fatal("expected Finalize to flush the in-progress utterance")
	}
	if result.Text == "" {
		t.Error("expected non-empty text from Finalize")
	}
}

func TestResetClearsContextAndInterims(t *testing.T) {
	asr := &fakeTranscriber{}
	translator := &fakeTranslator{}
	st := newTestStreamTranscriber(t, asr, translator)

	_ = st.FeedAudio(speechChunk(512 * 20))
	_ = st.FeedAudio(silenceChunk(512 * 20))
	st.GetResult(2 * time.Second)

	st.Reset()

	st.ctxMu.Lock()
	n := st.ctxWindow.Len()
	st.ctxMu.Unlock()
	if n != 0 {
		t.Errorf("got context window length %d after Reset, want 0", n)
	}
	if _, ok := st.GetInterim(); ok {
		t.Error("expected no interim after Reset")
	}
}

func TestRunSyncDrainsFileSource(t *testing.T) {
	asr := &fakeTranscriber{}
	st := newTestStreamTranscriber(t, asr, nil)

	src := &fakeSource{
		chunks: []audio.Chunk{speechChunk(512 * 20), silenceChunk(512 * 20)},
		rate:   vad.BackendRate,
	}
	if err := st.RunSync(src); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if !src.started || !src.stopped {
		t.Error("expected RunSync to Start and Stop the source")
	}
	if _, ok := st.GetResult(2 * time.Second); !ok {
		t.Error("expected a final result after RunSync")
	}
}

type fakeSource struct {
	chunks  []audio.Chunk
	rate    uint32
	pos     int
	started bool
	stopped bool
}

func (f *fakeSource) Start() error { f.started = true; return nil }
func (f *fakeSource) Stop() error  { f.stopped = true; return nil }
func (f *fakeSource) Read(timeout time.Duration) (audio.Chunk, bool) {
	if f.pos >= len(f.chunks) {
		return audio.Chunk{}, false
	}
	c := f.chunks[f.pos]
	f.pos++
	return c, true
}
func (f *fakeSource) SampleRate() uint32 { return f.rate }
func (f *fakeSource) ChunkMs() int       { return 20 }
