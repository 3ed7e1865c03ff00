package vad

// Segment is an utterance boundary carrying its accumulated audio.
// Interim segments (IsFinal == false) preview an in-progress utterance;
// exactly one final segment closes it.
type Segment struct {
	Audio   []float32
	TStartS float64
	TEndS   float64
	IsFinal bool
}
