package vad

import (
	"reflect"
	"testing"
)

const testFrameSize = 512 // 32ms at 16kHz

func feed(sm *StateMachine, n int, p float32) []Segment {
	frame := make([]float32, testFrameSize)
	var all []Segment
	for i := 0; i < n; i++ {
		all = append(all, sm.Process(frame, p)...)
	}
	return all
}

func TestSilenceOnlyProducesNoSegments(t *testing.T) {
	sm := New(DefaultConfig(), testFrameSize)
	segs := feed(sm, 31, 0.05) // ~1 second of silence
	if len(segs) != 0 {
		t.Fatalf("got %d segments, want 0", len(segs))
	}
	if sm.Finalize() != nil {
		t.Error("Finalize() on silence-only stream should return nil")
	}
}

func TestSingleUtteranceYieldsOneFinal(t *testing.T) {
	cfg := DefaultConfig() // Threshold 0.5, NegThreshold 0.35, MinSpeechMs 250, MinSilenceMs 500, SpeechPadMs 300
	sm := New(cfg, testFrameSize)

	var segs []Segment
	segs = append(segs, feed(sm, 16, 0.1)...)  // ~0.5s silence
	segs = append(segs, feed(sm, 25, 0.9)...)  // ~0.8s speech
	segs = append(segs, feed(sm, 40, 0.1)...)  // ~1.28s trailing silence (covers min_silence + pad)

	var finals []Segment
	for _, s := range segs {
		if s.IsFinal {
			finals = append(finals, s)
		}
	}
	if len(finals) != 1 {
		t.Fatalf("got %d final segments, want 1 (segments: %+v)", len(finals), segs)
	}
	f := finals[0]
	if f.TEndS < f.TStartS {
		t.Errorf("TEndS %v < TStartS %v", f.TEndS, f.TStartS)
	}
	const tol = 0.1
	if diff := f.TStartS - 0.2; diff < -tol || diff > tol {
		t.Errorf("TStartS = %v, want ~0.2 (0.5 - 0.3 pad)", f.TStartS)
	}
	if diff := f.TEndS - 1.6; diff < -tol || diff > tol {
		t.Errorf("TEndS = %v, want ~1.6 (1.3 + 0.3 pad)", f.TEndS)
	}
}

func TestInterimEmissionDuringLongUtterance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InterimMinDurationMs = 1000
	cfg.InterimIntervalMs = 500
	sm := New(cfg, testFrameSize)

	// 3 seconds of continuous speech: (3000/32) ~= 94 frames.
	segs := feed(sm, 94, 0.9)

	var interims int
	for _, s := range segs {
		if !s.IsFinal {
			interims++
		}
	}
	if interims < 4 {
		t.Errorf("got %d interims, want at least 4", interims)
	}
}

func TestInterimStrictlyPrecedesFinal(t *testing.T) {
	cfg := DefaultConfig()
	sm := New(cfg, testFrameSize)

	var segs []Segment
	segs = append(segs, feed(sm, 94, 0.9)...)
	segs = append(segs, feed(sm, 40, 0.1)...)

	sawFinal := false
	for _, s := range segs {
		if s.IsFinal {
			sawFinal = true
			continue
		}
		if sawFinal {
			t.Fatal("interim segment observed after final")
		}
	}
}

func TestMaxSpeechMsForcesSplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSpeechMs = 1000
	sm := New(cfg, testFrameSize)

	// (1000ms + one frame) / 32ms ~= 32 frames minimum; feed generously more
	// to guarantee at least two forced splits.
	segs := feed(sm, 70, 0.9)

	var finals int
	for _, s := range segs {
		if s.IsFinal {
			finals++
		}
	}
	if finals < 2 {
		t.Errorf("got %d final segments, want at least 2", finals)
	}
}

func TestFalseStartDiscardsBuffer(t *testing.T) {
	sm := New(DefaultConfig(), testFrameSize)

	// Speech probability for less than min_speech_ms, then drop below
	// neg_threshold: should never enter SPEECH, no segments at all.
	segs := feed(sm, 3, 0.9) // ~96ms, well under the 250ms default
	segs = append(segs, feed(sm, 5, 0.05)...)
	if len(segs) != 0 {
		t.Fatalf("got %d segments from a false start, want 0", len(segs))
	}
	if sm.Finalize() != nil {
		t.Error("Finalize() after a false start should return nil")
	}
}

func TestResetThenReplayReproducesSegments(t *testing.T) {
	cfg := DefaultConfig()
	sm := New(cfg, testFrameSize)

	run := func(m *StateMachine) []Segment {
		var segs []Segment
		segs = append(segs, feed(m, 16, 0.1)...)
		segs = append(segs, feed(m, 25, 0.9)...)
		segs = append(segs, feed(m, 40, 0.1)...)
		return segs
	}

	first := run(sm)
	sm.Reset()
	second := run(sm)

	if len(first) != len(second) {
		t.Fatalf("got %d segments after reset+replay, want %d", len(second), len(first))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Errorf("segment %d differs after reset+replay: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFinalizeClosesInProgressUtterance(t *testing.T) {
	sm := New(DefaultConfig(), testFrameSize)
	feed(sm, 25, 0.9) // enters SPEECH, never reaches silence

	seg := sm.Finalize()
	if seg == nil {
		t.Fatal("expected Finalize() to close the in-progress utterance")
	}
	if !seg.IsFinal {
		t.Error("Finalize() segment should have IsFinal = true")
	}
}
