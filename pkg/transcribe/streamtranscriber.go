package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/livecap/livecap-core/internal/breaker"
	"github.com/livecap/livecap-core/internal/workerpool"
	"github.com/livecap/livecap-core/pkg/audio"
	"github.com/livecap/livecap-core/pkg/vad"
)

// errBreakerOpen is treated exactly like a translator NetworkError: the
// context window still advances, but no translated text is attached.
var errBreakerOpen = errors.New("transcribe: translation circuit breaker open")

var errClosed = errors.New("transcribe: stream closed")

// Config configures a StreamTranscriber. Zero values fall back to the
// defaults noted per field.
type Config struct {
	SourceID   string
	SourceLang string
	// TargetLang is only consulted when a Translator is configured.
	TargetLang string
	// TranslationTimeout bounds a single translate call, retries
	// included. Defaults to DefaultTranslationTimeout.
	TranslationTimeout time.Duration
	// WorkerPoolSize sizes the pool StreamTranscriber creates when no
	// Pool is supplied. Defaults to 1.
	WorkerPoolSize int
	// ResultBufferSize bounds the final-result channel. Defaults to 16.
	ResultBufferSize int
	// ReadTimeout bounds each AudioSource.Read call made by RunSync and
	// RunAsync. Defaults to 5s.
	ReadTimeout time.Duration
}

func (c Config) translationTimeout() time.Duration {
	if c.TranslationTimeout > 0 {
		return c.TranslationTimeout
	}
	return DefaultTranslationTimeout
}

func (c Config) workerPoolSize() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return 1
}

func (c Config) resultBufferSize() int {
	if c.ResultBufferSize > 0 {
		return c.ResultBufferSize
	}
	return 16
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout > 0 {
		return c.ReadTimeout
	}
	return 5 * time.Second
}

// StreamTranscriber drives one AudioSource through a VAD state machine,
// an ASR backend, and an optional translator. Transcription and
// translation for a segment run together as a single worker-pool task,
// so a size-1 pool never needs a task to submit a second task to itself.
type StreamTranscriber struct {
	cfg Config

	resampler *audio.Resampler
	backend   vad.Backend
	sm        *vad.StateMachine

	transcriber       Transcriber
	translator        Translator
	translatorBreaker *breaker.Breaker
	pool              workerpool.Pool
	ownsPool          bool

	ctxMu     sync.Mutex
	ctxWindow ContextWindow

	results chan TranscriptionResult

	interimMu     sync.Mutex
	latestInterim *InterimResult

	onResult  func(TranscriptionResult)
	onInterim func(InterimResult)

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a StreamTranscriber. pool may be nil, in which case a
// private pool of cfg.WorkerPoolSize workers is created and stopped by
// Close. translator may be nil, in which case no translation is ever
// attempted.
func New(cfg Config, backend vad.Backend, vcfg vad.Config, transcriber Transcriber, translator Translator, pool workerpool.Pool) *StreamTranscriber {
	ownsPool := pool == nil
	if ownsPool {
		pool = workerpool.New(cfg.workerPoolSize())
	}
	return &StreamTranscriber{
		cfg:         cfg,
		resampler:   audio.NewResampler(vad.BackendRate, backend.FrameSize()),
		backend:     backend,
		sm:          vad.New(vcfg, backend.FrameSize()),
		transcriber: transcriber,
		translator:  translator,
		pool:        pool,
		ownsPool:    ownsPool,
		results:     make(chan TranscriptionResult, cfg.resultBufferSize()),
		closed:      make(chan struct{}),
	}
}

// SetTranslatorBreaker installs a circuit breaker guarding calls to the
// translator: once tripped open, translate skips the translator entirely
// instead of calling a service that is failing repeatedly.
func (st *StreamTranscriber) SetTranslatorBreaker(b *breaker.Breaker) {
	st.translatorBreaker = b
}

// OnResult registers a callback invoked, in addition to GetResult,
// whenever a final result is produced. Must be called before feeding
// audio.
func (st *StreamTranscriber) OnResult(fn func(TranscriptionResult)) { st.onResult = fn }

// OnInterim registers a callback invoked whenever an interim preview is
// produced. Must be called before feeding audio.
func (st *StreamTranscriber) OnInterim(fn func(InterimResult)) { st.onInterim = fn }

// FeedAudio resamples chunk to the VAD operating rate, runs it through
// the state machine, and schedules any emitted segments for
// transcription. It does not wait for a segment's ASR or translation to
// finish, but handing a segment to the pool blocks until a worker is
// free, so it can wait on earlier segments still being processed.
func (st *StreamTranscriber) FeedAudio(chunk audio.Chunk) error {
	select {
	case <-st.closed:
		return errClosed
	default:
	}

	for _, frame := range st.resampler.Process(chunk) {
		p := st.backend.Process(frame.Samples)
		for _, seg := range st.sm.Process(frame.Samples, p) {
			st.schedule(seg)
		}
	}
	return nil
}

// Finalize flushes any in-progress utterance as a final segment and
// waits for its transcription (and translation, if configured) to
// complete. It returns false if there was nothing in progress.
func (st *StreamTranscriber) Finalize() (*TranscriptionResult, bool) {
	seg := st.sm.Finalize()
	if seg == nil {
		return nil, false
	}

	done := make(chan *TranscriptionResult, 1)
	task := func() {
		final, _ := st.processSegment(*seg)
		done <- final
	}
	if err := st.pool.Submit(context.Background(), task); err != nil {
		final, _ := st.processSegment(*seg)
		return final, final != nil
	}
	final := <-done
	if final == nil {
		return nil, false
	}
	st.emit(*final)
	return final, true
}

// GetResult blocks for up to timeout for the next final result.
func (st *StreamTranscriber) GetResult(timeout time.Duration) (*TranscriptionResult, bool) {
	select {
	case r := <-st.results:
		return &r, true
	case <-time.After(timeout):
		return nil, false
	case <-st.closed:
		select {
		case r := <-st.results:
			return &r, true
		default:
			return nil, false
		}
	}
}

// GetInterim polls, without blocking, for the latest interim preview not
// already returned. Each interim is returned at most once.
func (st *StreamTranscriber) GetInterim() (*InterimResult, bool) {
	st.interimMu.Lock()
	defer st.interimMu.Unlock()
	if st.latestInterim == nil {
		return nil, false
	}
	r := st.latestInterim
	st.latestInterim = nil
	return r, true
}

// Reset clears the VAD state machine, the translation context window,
// any pending interim, and drains buffered final results. In-flight
// pool tasks are not cancelled: a segment already handed to the pool
// still delivers its result (and, if translated, appends to the context
// window) after Reset returns.
func (st *StreamTranscriber) Reset() {
	st.sm.Reset()
	st.resampler.Reset()
	st.backend.Reset()

	st.ctxMu.Lock()
	st.ctxWindow.Reset()
	st.ctxMu.Unlock()

	st.interimMu.Lock()
	st.latestInterim = nil
	st.interimMu.Unlock()

	for {
		select {
		case <-st.results:
		default:
			return
		}
	}
}

// Close stops the stream. Once closed, FeedAudio returns an error and
// GetResult drains any already-buffered results then reports none. If
// this StreamTranscriber created its own pool, Close stops it too.
func (st *StreamTranscriber) Close() {
	st.closeOnce.Do(func() {
		close(st.closed)
		if st.ownsPool {
			st.pool.Stop()
		}
		_ = st.transcriber.Cleanup()
		if st.translator != nil {
			_ = st.translator.Cleanup()
		}
	})
}

// RunSync drives source to completion on the calling goroutine: read,
// feed, repeat, then finalize. It returns when the source is exhausted.
func (st *StreamTranscriber) RunSync(source audio.Source) error {
	if err := source.Start(); err != nil {
		return err
	}
	defer source.Stop()

	for {
		chunk, ok := source.Read(st.cfg.readTimeout())
		if !ok {
			break
		}
		if err := st.FeedAudio(chunk); err != nil {
			return err
		}
	}
	st.Finalize()
	return nil
}

// RunAsync is RunSync's cooperative-cancellation variant: it checks ctx
// between reads and, on cancellation, finalizes the in-progress
// utterance and returns ctx.Err() without reading the rest of the
// source.
func (st *StreamTranscriber) RunAsync(ctx context.Context, source audio.Source) error {
	if err := source.Start(); err != nil {
		return err
	}
	defer source.Stop()

	for {
		select {
		case <-ctx.Done():
			st.Finalize()
			return ctx.Err()
		default:
		}
		chunk, ok := source.Read(st.cfg.readTimeout())
		if !ok {
			break
		}
		if err := st.FeedAudio(chunk); err != nil {
			return err
		}
	}
	st.Finalize()
	return nil
}

func (st *StreamTranscriber) schedule(seg vad.Segment) {
	task := func() {
		final, interim := st.processSegment(seg)
		if final != nil {
			st.emit(*final)
		}
		if interim != nil {
			st.setInterim(*interim)
		}
	}
	if err := st.pool.Submit(context.Background(), task); err != nil {
		slog.Warn("transcribe: dropping segment, pool unavailable", "source_id", st.cfg.SourceID, "err", err)
	}
}

// processSegment runs ASR and, for final segments, translation. ASR runs
// inline in the calling goroutine (a pool worker); translation runs on a
// goroutine of its own that translateBounded waits on. Neither goes
// through a further Submit, so a single-worker pool can never deadlock
// on itself.
func (st *StreamTranscriber) processSegment(seg vad.Segment) (*TranscriptionResult, *InterimResult) {
	audioForASR, rate := st.resampleForASR(seg.Audio)

	text, confidence, err := st.transcriber.Transcribe(audioForASR, rate)
	if err != nil {
		slog.Error("transcribe: engine failure", "source_id", st.cfg.SourceID, "engine", st.transcriber.EngineName(), "err", err)
		return nil, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if !seg.IsFinal {
		return nil, &InterimResult{
			Text:             text,
			AccumulatedTimeS: seg.TEndS - seg.TStartS,
			SourceID:         st.cfg.SourceID,
		}
	}

	result := TranscriptionResult{
		Text:       text,
		TStartS:    seg.TStartS,
		TEndS:      seg.TEndS,
		Confidence: confidence,
		SourceID:   st.cfg.SourceID,
		Language:   st.cfg.SourceLang,
	}
	if st.translator != nil {
		st.translate(text, &result)
	}
	return &result, nil
}

func (st *StreamTranscriber) translate(text string, result *TranscriptionResult) {
	k := st.translator.DefaultContextSentences()
	st.ctxMu.Lock()
	var contextSentences []string
	if k > 0 {
		contextSentences = st.ctxWindow.Last(k)
	}
	st.ctxMu.Unlock()

	var tres TranslationResult
	var err error
	if st.translatorBreaker != nil && !st.translatorBreaker.Allow() {
		err = errBreakerOpen
	} else {
		tres, err = st.translateBounded(text, contextSentences)
		if st.translatorBreaker != nil {
			if err != nil {
				st.translatorBreaker.RecordFailure()
			} else {
				st.translatorBreaker.RecordSuccess()
			}
		}
	}

	st.ctxMu.Lock()
	st.ctxWindow.Append(text)
	st.ctxMu.Unlock()

	if err != nil {
		slog.Warn("transcribe: translation failed", "source_id", st.cfg.SourceID, "err", err)
		return
	}
	translated := tres.Text
	target := st.cfg.TargetLang
	result.TranslatedText = &translated
	result.TargetLang = &target
}

// errTranslationTimeout is returned when the translate call has not
// completed within the configured deadline. The underlying call may
// still be running on the goroutine translateBounded started; its
// eventual result is discarded rather than waited on.
var errTranslationTimeout = errors.New("transcribe: translation timed out")

// translateBounded enforces cfg.translationTimeout() caller-side: the
// translator is not trusted to honor ctx cancellation itself, so this
// abandons the wait (and the result) once the deadline passes instead
// of relying on the call to return promptly.
func (st *StreamTranscriber) translateBounded(text string, contextSentences []string) (TranslationResult, error) {
	timeout := st.cfg.translationTimeout()
	done := make(chan struct{})
	var tres TranslationResult
	var err error
	go func() {
		tres, err = translateWithRetry(context.Background(), st.translator, text, st.cfg.SourceLang, st.cfg.TargetLang, contextSentences, timeout)
		close(done)
	}()

	select {
	case <-done:
		return tres, err
	case <-time.After(timeout):
		return TranslationResult{}, errTranslationTimeout
	}
}

func (st *StreamTranscriber) resampleForASR(segAudio []float32) ([]float32, uint32) {
	required := st.transcriber.RequiredSampleRate()
	if required == 0 || required == vad.BackendRate {
		return segAudio, vad.BackendRate
	}
	up, down := audio.Ratio(vad.BackendRate, required)
	return audio.ResampleRatio(segAudio, up, down), required
}

func (st *StreamTranscriber) emit(result TranscriptionResult) {
	select {
	case st.results <- result:
	case <-st.closed:
		return
	}
	if st.onResult != nil {
		st.onResult(result)
	}
}

func (st *StreamTranscriber) setInterim(interim InterimResult) {
	st.interimMu.Lock()
	st.latestInterim = &interim
	st.interimMu.Unlock()
	if st.onInterim != nil {
		st.onInterim(interim)
	}
}
