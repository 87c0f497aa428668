package spectrum

import (
	"math"
	"testing"
)

func sine(freq float64, n, sampleRate int) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return x
}

func TestAnalyzeVoiceFormantToneSkewsDialogue(t *testing.T) {
	const sr = 44100
	const n = 4410
	a := NewAnalyzer(n, sr)

	// 1kHz sits inside voice_formants [500,2000).
	bands := a.Analyze(sine(1000, n, sr))
	f := bands.Derive()

	if f.VoiceFormantsRatio < 0.5 {
		t.Fatalf("expected a 1kHz tone to dominate voice_formants, got ratio %v", f.VoiceFormantsRatio)
	}
	if f.BackgroundMusicRatio > 0.2 {
		t.Fatalf("expected low background_music_ratio for a pure voice-band tone, got %v", f.BackgroundMusicRatio)
	}
}

func TestAnalyzeBassToneSkewsBass(t *testing.T) {
	const sr = 44100
	const n = 4410
	a := NewAnalyzer(n, sr)

	bands := a.Analyze(sine(80, n, sr))
	f := bands.Derive()

	if f.BassRatio < 0.5 {
		t.Fatalf("expected an 80Hz tone to dominate bass, got ratio %v", f.BassRatio)
	}
}

func TestFeaturesAreClampedAndFinite(t *testing.T) {
	const sr = 44100
	const n = 1024
	a := NewAnalyzer(n, sr)

	x := make([]float32, n) // silence
	bands := a.Analyze(x)
	f := bands.Derive()

	for _, v := range []float64{
		f.VoiceFormantsRatio, f.VoiceEnergyRatio, f.BassRatio, f.HighRatio, f.BackgroundMusicRatio,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("expected finite ratio for silent input, got %v", v)
		}
		if v < 0 || v > 1 {
			t.Fatalf("expected ratio in [0,1] for silent input, got %v", v)
		}
	}
	if math.IsNaN(f.SpectralVariation) || math.IsInf(f.SpectralVariation, 0) {
		t.Fatalf("expected finite spectral_variation for silent input, got %v", f.SpectralVariation)
	}
}
