package vad

import "testing"

func TestEnergyBackendClampsToUnitRange(t *testing.T) {
	b := NewEnergyBackend(160, 0.1)
	loud := make([]float32, 160)
	for i := range loud {
		loud[i] = 1.0
	}
	if p := b.Process(loud); p != 1.0 {
		t.Errorf("Process(loud) = %v, want 1.0 (clamped)", p)
	}

	silent := make([]float32, 160)
	if p := b.Process(silent); p != 0 {
		t.Errorf("Process(silent) = %v, want 0", p)
	}
}

func TestEnergyBackendFrameSizeAndName(t *testing.T) {
	b := NewEnergyBackend(512, 0.2)
	if b.FrameSize() != 512 {
		t.Errorf("FrameSize() = %d, want 512", b.FrameSize())
	}
	if b.Name() != "energy" {
		t.Errorf("Name() = %q, want %q", b.Name(), "energy")
	}
}

func TestEnergyBackendEmptyFrame(t *testing.T) {
	b := NewEnergyBackend(160, 0.2)
	if p := b.Process(nil); p != 0 {
		t.Errorf("Process(nil) = %v, want 0", p)
	}
}
