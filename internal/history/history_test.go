package history

import (
	"testing"

	"github.com/linuxmatters/agc/internal/classify"
)

func TestSmoothedDBIsMeanOfRing(t *testing.T) {
	w := NewWindow(3)
	w.Push(-10, classify.Result{})
	w.Push(-20, classify.Result{})
	w.Push(-30, classify.Result{})
	if got := w.SmoothedDB(); got != -20 {
		t.Fatalf("expected mean -20, got %v", got)
	}
}

func TestSmoothedDBEvictsOldest(t *testing.T) {
	w := NewWindow(2)
	w.Push(-10, classify.Result{})
	w.Push(-20, classify.Result{})
	w.Push(-30, classify.Result{}) // evicts -10
	if got := w.SmoothedDB(); got != -25 {
		t.Fatalf("expected mean -25 after eviction, got %v", got)
	}
}

func TestPredominantLabelRequiresMinSamples(t *testing.T) {
	w := NewWindow(5)
	// A single dialogue sample should not win: MinSamples[Dialogue] = 2.
	w.Push(-20, classify.Result{Label: classify.Dialogue, Confidence: 0.9})
	label, conf := w.Smoothed()
	if label != classify.Unknown {
		t.Fatalf("expected Unknown with only 1 dialogue sample, got %v", label)
	}
	if conf != 0 {
		t.Fatalf("expected zero confidence for Unknown fallback, got %v", conf)
	}
}

func TestPredominantLabelWinsOnceMinSamplesMet(t *testing.T) {
	w := NewWindow(5)
	w.Push(-20, classify.Result{Label: classify.Dialogue, Confidence: 0.8})
	w.Push(-20, classify.Result{Label: classify.Dialogue, Confidence: 0.6})
	label, conf := w.Smoothed()
	if label != classify.Dialogue {
		t.Fatalf("expected Dialogue once MinSamples met, got %v", label)
	}
	want := (0.8 + 0.6) / 2
	if conf != want {
		t.Fatalf("expected mean confidence %v, got %v", want, conf)
	}
}

func TestPredominantLabelWeightedByConfidence(t *testing.T) {
	w := NewWindow(5)
	// 3 low-confidence music samples vs 2 high-confidence dialogue samples.
	w.Push(0, classify.Result{Label: classify.Music, Confidence: 0.1})
	w.Push(0, classify.Result{Label: classify.Music, Confidence: 0.1})
	w.Push(0, classify.Result{Label: classify.Music, Confidence: 0.1})
	w.Push(0, classify.Result{Label: classify.Dialogue, Confidence: 0.9})
	w.Push(0, classify.Result{Label: classify.Dialogue, Confidence: 0.9})
	label, _ := w.Smoothed()
	if label != classify.Dialogue {
		t.Fatalf("expected weighted confidence to favor Dialogue, got %v", label)
	}
}
