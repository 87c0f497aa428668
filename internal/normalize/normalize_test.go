package normalize

import "testing"

func TestGainIsClampedToRange(t *testing.T) {
	nz := New()

	if g := nz.Gain(0); g != nz.MaxGain {
		t.Fatalf("expected silence to clamp to max gain, got %v", g)
	}
	if g := nz.Gain(1000); g < 0 {
		t.Fatalf("expected non-negative gain for a loud window, got %v", g)
	}
	for _, rms := range []float64{0, 1e-12, 0.01, 0.15, 1.0, 100.0} {
		g := nz.Gain(rms)
		if g < 0 || g > nz.MaxGain {
			t.Fatalf("gain %v out of [0,%v] for rms=%v", g, nz.MaxGain, rms)
		}
	}
}

func TestApplyScalesTowardTarget(t *testing.T) {
	nz := New()
	x := make([]float32, 100)
	for i := range x {
		x[i] = 0.01
	}
	out := nz.Apply(x, 0.01)
	if len(out) != len(x) {
		t.Fatalf("expected output length %d, got %d", len(x), len(out))
	}
	for _, s := range out {
		if s <= x[0] {
			t.Fatalf("expected normalized sample to be amplified, got %v from %v", s, x[0])
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	nz := New()
	x := []float32{0.1, 0.2, 0.3}
	orig := append([]float32(nil), x...)
	nz.Apply(x, 0.2)
	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("Apply mutated input at index %d", i)
		}
	}
}
