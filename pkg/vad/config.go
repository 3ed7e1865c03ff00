// Package vad partitions a continuous stream of speech-probability frames
// into utterance segments: a frame-level capability interface
// (Backend) that external classifiers implement, and the state machine
// that converts a probability stream into segments with hysteresis,
// padding, and interim emission.
package vad

// Config holds the hysteresis and timing parameters for a StateMachine.
// It is constructed once and treated as immutable for a session.
type Config struct {
	Threshold            float64 `yaml:"threshold"`     // frame probability at/above which speech starts
	NegThreshold         float64 `yaml:"neg_threshold"` // frame probability below which speech ends; 0 ⇒ derived
	MinSpeechMs          int     `yaml:"min_speech_ms"`
	MinSilenceMs         int     `yaml:"min_silence_ms"`
	SpeechPadMs          int     `yaml:"speech_pad_ms"`
	MaxSpeechMs          int     `yaml:"max_speech_ms"` // 0 ⇒ no forced split
	InterimMinDurationMs int     `yaml:"interim_min_duration_ms"`
	InterimIntervalMs    int     `yaml:"interim_interval_ms"`
}

// DefaultConfig returns the VAD defaults used across the end-to-end
// scenarios: a 0.5 threshold, 250ms minimum speech, 500ms minimum
// silence, 300ms of padding, no forced split, and interim emission every
// 500ms starting at 1000ms of accumulated speech.
func DefaultConfig() Config {
	return Config{
		Threshold:            0.5,
		MinSpeechMs:          250,
		MinSilenceMs:         500,
		SpeechPadMs:          300,
		MaxSpeechMs:          0,
		InterimMinDurationMs: 1000,
		InterimIntervalMs:    500,
	}
}

// Normalize fills in NegThreshold when the caller left it at zero:
// neg_threshold = max(threshold - 0.15, 0.01).
func (c Config) Normalize() Config {
	if c.NegThreshold == 0 {
		neg := c.Threshold - 0.15
		if neg < 0.01 {
			neg = 0.01
		}
		c.NegThreshold = neg
	}
	return c
}
