package classify

import (
	"testing"

	"github.com/linuxmatters/agc/internal/spectrum"
)

func TestClassifyScoringTable(t *testing.T) {
	tests := []struct {
		name      string
		features  spectrum.Features
		wantLabel Label
	}{
		{
			name: "strong formants low background is dialogue",
			features: spectrum.Features{
				VoiceFormantsRatio:   0.20,
				VoiceEnergyRatio:     0.50,
				BassToVoice:          0.2,
				BackgroundMusicRatio: 0.05,
				SpectralVariation:    0.5,
				HighRatio:            0.05,
			},
			wantLabel: Dialogue,
		},
		{
			name: "bass heavy with high background is music",
			features: spectrum.Features{
				VoiceFormantsRatio:   0.02,
				VoiceEnergyRatio:     0.10,
				BassToVoice:          2.0,
				BackgroundMusicRatio: 0.80,
				SpectralVariation:    2.0,
				HighRatio:            0.20,
			},
			wantLabel: Music,
		},
		{
			name:      "features triggering no rule is unknown",
			features:  spectrum.Features{BassToVoice: 1.0, SpectralVariation: 1.0},
			wantLabel: Unknown,
		},
	}

	c := New(DefaultThresholds)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.features)
			if res.Label != tt.wantLabel {
				t.Errorf("got label %v, want %v (dialogue=%.2f music=%.2f)",
					res.Label, tt.wantLabel, res.DialogueScore, res.MusicScore)
			}
		})
	}
}

func TestClassifyScoresAreAlwaysClamped(t *testing.T) {
	c := New(DefaultThresholds)
	extreme := spectrum.Features{
		VoiceFormantsRatio:   1,
		VoiceEnergyRatio:     1,
		BassRatio:            1,
		HighRatio:            1,
		BassToVoice:          100,
		BackgroundMusicRatio: 1,
		SpectralVariation:    100,
	}
	res := c.Classify(extreme)
	if res.DialogueScore < 0 || res.DialogueScore > 1 {
		t.Fatalf("dialogue score out of range: %v", res.DialogueScore)
	}
	if res.MusicScore < 0 || res.MusicScore > 1 {
		t.Fatalf("music score out of range: %v", res.MusicScore)
	}
}

func TestClassifyTieBreakIsUnknown(t *testing.T) {
	c := New(Thresholds{Dialogue: 0, Music: 0})
	// bass_to_voice and spectral_variation of 1.0 sit between their
	// dialogue and music cut-offs and every ratio is 0, so no rule fires
	// and both scores land at exactly 0 — a genuine tie, still meeting the
	// zero thresholds configured above.
	res := c.Classify(spectrum.Features{BassToVoice: 1.0, SpectralVariation: 1.0})
	if res.DialogueScore != res.MusicScore {
		t.Fatalf("expected a tie, got d=%.2f m=%.2f", res.DialogueScore, res.MusicScore)
	}
	if res.Label != Unknown {
		t.Fatalf("expected exact score tie to resolve to Unknown, got %v", res.Label)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := New(DefaultThresholds)
	f := spectrum.Features{VoiceFormantsRatio: 0.12, VoiceEnergyRatio: 0.4, BassToVoice: 0.3}
	a := c.Classify(f)
	b := c.Classify(f)
	if a != b {
		t.Fatalf("expected identical input to produce identical output: %+v vs %+v", a, b)
	}
}
