package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultTranslationTimeout is used when LIVECAP_TRANSLATION_TIMEOUT is
// unset or invalid.
const DefaultTranslationTimeout = 10 * time.Second

// translateWithRetry bounds the retry loop with ctx (derived from
// timeout) and retries NetworkError failures with exponential backoff
// (3 attempts, 1s base, doubling); any other failure kind is permanent.
// This only cancels retries between attempts — a translator that
// ignores ctx and blocks past the deadline is not interrupted here;
// StreamTranscriber.translateBounded is what abandons such a call
// caller-side.
func translateWithRetry(ctx context.Context, translator Translator, text, srcLang, tgtLang string, contextSentences []string, timeout time.Duration) (TranslationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := func() (TranslationResult, error) {
		res, err := translator.Translate(ctx, text, srcLang, tgtLang, contextSentences)
		if err != nil {
			var te *TranslationError
			if errors.As(err, &te) && te.Kind == NetworkError {
				return TranslationResult{}, err
			}
			return TranslationResult{}, backoff.Permanent(err)
		}
		return res, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2

	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(3))
}
