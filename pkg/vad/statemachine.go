package vad

// state is the VADStateMachine's current phase.
type state int

const (
	stateSilence state = iota
	statePotentialSpeech
	stateSpeech
	statePotentialSilence
)

// StateMachine converts a stream of (frame, probability) pairs into
// utterance Segments. It is strictly single-threaded: callers must drive
// it from one producer goroutine.
type StateMachine struct {
	cfg       Config
	frameSize int

	st      state
	elapsed float64 // current_t: start time of the next frame to process

	preRoll      [][]float32 // ring of recent silence frames, for leading padding
	padFrames    int
	pendingAudio []float32 // accumulated while in POTENTIAL_SPEECH

	segmentBuffer   []float32
	segmentStartT   float64
	speechRunStartT float64 // start of the current uninterrupted p>=negThreshold run
	lastInterimT    float64

	// POTENTIAL_SILENCE bookkeeping. The segment's TEndS and trailing audio
	// are fixed at speechEndIdx + speech_pad_ms worth of samples as soon as
	// that padding window fills, independent of whether min_silence_ms has
	// been confirmed yet; the actual emission waits for both conditions.
	silenceStartT      float64
	speechEndIdx       int // len(segmentBuffer) at the moment speech stopped
	padFramesRemaining int
	pendingFinalReady  bool
	pendingFinalEnd    float64
	silenceConfirmed   bool
}

// New creates a StateMachine for frames of frameSize samples at 16kHz,
// normalizing cfg (deriving NegThreshold if unset).
func New(cfg Config, frameSize int) *StateMachine {
	cfg = cfg.Normalize()
	delta := float64(frameSize) / 16000.0
	padFrames := 0
	if cfg.SpeechPadMs > 0 && delta > 0 {
		padFrames = int((float64(cfg.SpeechPadMs)/1000.0)/delta + 0.5)
	}
	return &StateMachine{cfg: cfg, frameSize: frameSize, padFrames: padFrames}
}

func (m *StateMachine) delta() float64 {
	return float64(m.frameSize) / 16000.0
}

// Process advances the state machine by one frame and returns zero or more
// segments produced as a result (an interim, a final, or both if a
// max_speech_ms split coincides with an interim boundary).
func (m *StateMachine) Process(frame []float32, p float32) []Segment {
	delta := m.delta()
	t0 := m.elapsed
	t1 := t0 + delta
	var out []Segment

	switch m.st {
	case stateSilence:
		if float64(p) >= m.cfg.Threshold {
			m.st = statePotentialSpeech
			m.speechRunStartT = t0
			m.pendingAudio = append(m.pendingAudio, flattenPreRoll(m.preRoll)...)
			m.pendingAudio = append(m.pendingAudio, frame...)
			m.segmentStartT = t0 - float64(len(m.preRoll))*delta
			if m.segmentStartT < 0 {
				m.segmentStartT = 0
			}
			m.preRoll = nil
		} else {
			m.pushPreRoll(frame)
		}

	case statePotentialSpeech:
		m.pendingAudio = append(m.pendingAudio, frame...)
		if float64(p) < m.cfg.NegThreshold {
			// False start: discard and return to silence.
			m.st = stateSilence
			m.pendingAudio = nil
		} else {
			runMs := (t1 - m.speechRunStartT) * 1000
			if runMs >= float64(m.cfg.MinSpeechMs) {
				m.st = stateSpeech
				m.segmentBuffer = m.pendingAudio
				m.pendingAudio = nil
				m.lastInterimT = m.segmentStartT
			}
		}

	case stateSpeech:
		m.segmentBuffer = append(m.segmentBuffer, frame...)

		if float64(p) < m.cfg.NegThreshold {
			m.speechEndIdx = len(m.segmentBuffer) - len(frame)
			m.silenceStartT = t0
			m.padFramesRemaining = m.padFrames
			m.pendingFinalReady = false
			m.silenceConfirmed = false
			m.st = statePotentialSilence
			out = append(out, m.tickPotentialSilence(t1)...)
		} else {
			durMs := (t1 - m.segmentStartT) * 1000
			sinceInterimMs := (t1 - m.lastInterimT) * 1000
			if durMs >= float64(m.cfg.InterimMinDurationMs) && sinceInterimMs >= float64(m.cfg.InterimIntervalMs) {
				m.lastInterimT = t1
				out = append(out, Segment{
					Audio:   copyAudio(m.segmentBuffer),
					TStartS: m.segmentStartT,
					TEndS:   t1,
					IsFinal: false,
				})
			}
			if m.cfg.MaxSpeechMs > 0 && durMs >= float64(m.cfg.MaxSpeechMs) {
				out = append(out, Segment{
					Audio:   copyAudio(m.segmentBuffer),
					TStartS: m.segmentStartT,
					TEndS:   t1,
					IsFinal: true,
				})
				m.segmentBuffer = nil
				m.segmentStartT = t1
				m.lastInterimT = t1
			}
		}

	case statePotentialSilence:
		m.segmentBuffer = append(m.segmentBuffer, frame...)

		if float64(p) >= m.cfg.Threshold {
			// Cancel silence, resume normal speech.
			m.st = stateSpeech
		} else {
			out = append(out, m.tickPotentialSilence(t1)...)
		}
	}

	m.elapsed = t1
	return out
}

// tickPotentialSilence advances the trailing-padding and silence-
// confirmation bookkeeping for the frame ending at t1, returning an
// emitted final segment if both the padding window has filled and
// min_silence_ms has elapsed.
func (m *StateMachine) tickPotentialSilence(t1 float64) []Segment {
	silenceMs := (t1 - m.silenceStartT) * 1000
	if silenceMs >= float64(m.cfg.MinSilenceMs) {
		m.silenceConfirmed = true
	}

	if !m.pendingFinalReady {
		if m.padFrames == 0 {
			m.pendingFinalReady = true
			m.pendingFinalEnd = m.silenceStartT
		} else {
			m.padFramesRemaining--
			if m.padFramesRemaining <= 0 {
				m.pendingFinalReady = true
				m.pendingFinalEnd = t1
			}
		}
	}

	if !m.pendingFinalReady || !m.silenceConfirmed {
		return nil
	}

	endIdx := m.speechEndIdx + m.padFrames*m.frameSize
	if endIdx > len(m.segmentBuffer) {
		endIdx = len(m.segmentBuffer)
	}
	seg := Segment{
		Audio:   copyAudio(m.segmentBuffer[:endIdx]),
		TStartS: m.segmentStartT,
		TEndS:   m.pendingFinalEnd,
		IsFinal: true,
	}
	m.st = stateSilence
	m.segmentBuffer = nil
	return []Segment{seg}
}

// Finalize closes out an in-progress utterance, if any, as a final
// segment using the current elapsed time as TEndS and the full buffer
// accumulated so far (the stream ended before padding could confirm a
// natural boundary).
func (m *StateMachine) Finalize() *Segment {
	if m.st != stateSpeech && m.st != statePotentialSilence {
		return nil
	}
	seg := &Segment{
		Audio:   copyAudio(m.segmentBuffer),
		TStartS: m.segmentStartT,
		TEndS:   m.elapsed,
		IsFinal: true,
	}
	m.st = stateSilence
	m.segmentBuffer = nil
	return seg
}

// Reset restores the state machine to SILENCE with empty buffers and zero
// elapsed time.
func (m *StateMachine) Reset() {
	m.st = stateSilence
	m.elapsed = 0
	m.preRoll = nil
	m.pendingAudio = nil
	m.segmentBuffer = nil
	m.segmentStartT = 0
	m.speechRunStartT = 0
	m.lastInterimT = 0
	m.silenceStartT = 0
	m.speechEndIdx = 0
	m.padFramesRemaining = 0
	m.pendingFinalReady = false
	m.pendingFinalEnd = 0
	m.silenceConfirmed = false
}

func (m *StateMachine) pushPreRoll(frame []float32) {
	if m.padFrames <= 0 {
		return
	}
	cp := make([]float32, len(frame))
	copy(cp, frame)
	m.preRoll = append(m.preRoll, cp)
	if len(m.preRoll) > m.padFrames {
		m.preRoll = m.preRoll[1:]
	}
}

func flattenPreRoll(preRoll [][]float32) []float32 {
	var total int
	for _, f := range preRoll {
		total += len(f)
	}
	out := make([]float32, 0, total)
	for _, f := range preRoll {
		out = append(out, f...)
	}
	return out
}

func copyAudio(src []float32) []float32 {
	out := make([]float32, len(src))
	copy(out, src)
	return out
}
