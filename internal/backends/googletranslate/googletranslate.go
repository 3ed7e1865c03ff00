// Package googletranslate implements transcribe.Translator against
// Google's public translate_a/single endpoint, the same unauthenticated
// API the original implementation's deep-translator dependency wraps.
package googletranslate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/livecap/livecap-core/internal/registry"
	"github.com/livecap/livecap-core/internal/restutil"
	"github.com/livecap/livecap-core/pkg/langcode"
	"github.com/livecap/livecap-core/pkg/transcribe"
)

func init() {
	registry.Translators.Register("google", func(config map[string]string) (transcribe.Translator, error) {
		n := 3
		if v := config["default_context_sentences"]; v != "" {
			fmt.Sscanf(v, "%d", &n)
		}
		return &Translator{defaultContextSentences: n}, nil
	})
}

// Translator is a cloud API with no local model, so it is always
// initialised and LoadModel is a no-op.
type Translator struct {
	defaultContextSentences int
}

func (t *Translator) Translate(ctx context.Context, text, srcLang, tgtLang string, ctxSentences []string) (transcribe.TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return transcribe.TranslationResult{Text: "", OriginalText: text, SrcLang: srcLang, TgtLang: tgtLang}, nil
	}
	if langcode.ToISO6391(srcLang) == langcode.ToISO6391(tgtLang) {
		return transcribe.TranslationResult{}, &transcribe.TranslationError{
			Kind: transcribe.UnsupportedPair,
			Err:  fmt.Errorf("googletranslate: source and target language are both %q", langcode.ToISO6391(srcLang)),
		}
	}

	fullText := text
	if len(ctxSentences) > 0 {
		fullText = strings.Join(ctxSentences, "\n") + "\n" + text
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", langcode.NormalizeForGoogle(srcLang))
	params.Set("tl", langcode.NormalizeForGoogle(tgtLang))
	params.Set("dt", "t")
	params.Set("q", fullText)
	apiURL := "https://translate.googleapis.com/translate_a/single?" + params.Encode()

	body, err := restutil.DoRaw(ctx, "GET", apiURL, nil, nil)
	if err != nil {
		return transcribe.TranslationResult{}, &transcribe.TranslationError{
			Kind: transcribe.NetworkError,
			Err:  fmt.Errorf("googletranslate: request failed: %w", err),
		}
	}
	defer body.Close()

	var raw []any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return transcribe.TranslationResult{}, &transcribe.TranslationError{
			Kind: transcribe.ModelError,
			Err:  fmt.Errorf("googletranslate: decode response: %w", err),
		}
	}

	translated, err := extractTranslation(raw)
	if err != nil {
		return transcribe.TranslationResult{}, &transcribe.TranslationError{Kind: transcribe.ModelError, Err: err}
	}

	if len(ctxSentences) > 0 {
		translated = lastLine(translated)
	}

	return transcribe.TranslationResult{
		Text:         translated,
		OriginalText: text,
		SrcLang:      srcLang,
		TgtLang:      tgtLang,
	}, nil
}

// extractTranslation walks the endpoint's loosely-typed nested-array
// response: raw[0] is a list of [translatedChunk, originalChunk, ...]
// sentence segments, concatenated to form the full translation.
func extractTranslation(raw []any) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("googletranslate: empty response")
	}
	sentences, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("googletranslate: unexpected response shape")
	}
	var b strings.Builder
	for _, s := range sentences {
		segment, ok := s.([]any)
		if !ok || len(segment) == 0 {
			continue
		}
		chunk, ok := segment[0].(string)
		if !ok {
			continue
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return text
	}
	return lines[len(lines)-1]
}

func (t *Translator) SupportedPairs() []transcribe.LangPair { return nil }
func (t *Translator) DefaultContextSentences() int          { return t.defaultContextSentences }
func (t *Translator) Initialised() bool                     { return true }
func (t *Translator) LoadModel() error                      { return nil }
func (t *Translator) Cleanup() error                        { return nil }
