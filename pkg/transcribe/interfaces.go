package transcribe

import "context"

// Transcriber is the capability required of every ASR backend.
type Transcriber interface {
	Transcribe(audio []float32, sampleRate uint32) (text string, confidence float32, err error)
	RequiredSampleRate() uint32
	EngineName() string
	Cleanup() error
}

// LangPair is a (source, target) language pair a Translator supports.
type LangPair struct {
	Src string
	Tgt string
}

// TranslationResult is the outcome of a single translate call.
type TranslationResult struct {
	Text         string
	OriginalText string
	SrcLang      string
	TgtLang      string
	Confidence   *float32
}

// Translator is the capability required of every translation backend.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, tgtLang string, ctxSentences []string) (TranslationResult, error)
	// SupportedPairs returns the finite set of pairs this backend
	// supports; an empty slice means universal (no restriction).
	SupportedPairs() []LangPair
	DefaultContextSentences() int
	Initialised() bool
	LoadModel() error
	Cleanup() error
}

// ErrorKind classifies a Translator failure so callers can decide whether
// to retry.
type ErrorKind int

const (
	// Other is an unclassified translator failure.
	Other ErrorKind = iota
	// NetworkError is a transient failure worth retrying with backoff.
	NetworkError
	// ModelError is a backend-internal failure (not retried).
	ModelError
	// UnsupportedPair means the (src, tgt) pair is rejected outright,
	// including same-language pairs once normalized.
	UnsupportedPair
)

// TranslationError wraps a translator failure with its ErrorKind.
type TranslationError struct {
	Kind ErrorKind
	Err  error
}

func (e *TranslationError) Error() string {
	return e.Err.Error()
}

func (e *TranslationError) Unwrap() error { return e.Err }
