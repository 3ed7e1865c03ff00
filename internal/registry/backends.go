package registry

import (
	"github.com/livecap/livecap-core/pkg/transcribe"
	"github.com/livecap/livecap-core/pkg/vad"
)

// ASR is the global Transcriber backend registry. Concrete backends
// register themselves from an init() in internal/backends/<name>.
var ASR = New[transcribe.Transcriber]()

// Translators is the global Translator backend registry.
var Translators = New[transcribe.Translator]()

// VAD is the global VADBackend registry.
var VAD = New[vad.Backend]()
