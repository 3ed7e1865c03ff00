// Package mocktranslator provides a deterministic Translator for tests
// and local development, with optional injected NetworkError failures for
// exercising retry behavior.
package mocktranslator

import (
	"context"
	"fmt"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.Translators.Register("mock", func(config map[string]string) (transcribe.Translator, error) {
		return &Translator{prefix: config["prefix"]}, nil
	})
}

// Translator prefixes text with a fixed marker, or with "[src->tgt]" if
// no prefix was configured, so tests can see which pair was requested.
type Translator struct {
	prefix string
	// FailNext, when > 0, makes the next N calls return a NetworkError
	// and decrements. Intended for direct construction in tests, not
	// via the registry.
	FailNext int
}

func (t *Translator) Translate(ctx context.Context, text, srcLang, tgtLang string, ctxSentences []string) (transcribe.TranslationResult, error) {
	if t.FailNext > 0 {
		t.FailNext--
		return transcribe.TranslationResult{}, &transcribe.TranslationError{
			Kind: transcribe.NetworkError,
			Err:  fmt.Errorf("mocktranslator: simulated network failure"),
		}
	}
	prefix := t.prefix
	if prefix == "" {
		prefix = fmt.Sprintf("[%s->%s]", srcLang, tgtLang)
	}
	return transcribe.TranslationResult{
		Text:         prefix + " " + text,
		OriginalText: text,
		SrcLang:      srcLang,
		TgtLang:      tgtLang,
	}, nil
}

func (t *Translator) SupportedPairs() []transcribe.LangPair { return nil }
func (t *Translator) DefaultContextSentences() int          { return 2 }
func (t *Translator) Initialised() bool                     { return true }
func (t *Translator) LoadModel() error                      { return nil }
func (t *Translator) Cleanup() error                        { return nil }
