// Package classify scores a window's spectral features as dialogue or
// music and produces a labeled result (C5, §4.5).
package classify

import "github.com/linuxmatters/agc/internal/spectrum"

// Label is the classifier's output category.
type Label int

const (
	Unknown Label = iota
	Dialogue
	Music
)

func (l Label) String() string {
	switch l {
	case Dialogue:
		return "dialogue"
	case Music:
		return "music"
	default:
		return "unknown"
	}
}

// Result is the classifier's full output for one window.
type Result struct {
	Label          Label
	Confidence     float64
	Features       spectrum.Features
	DialogueScore  float64
	MusicScore     float64
}

// Thresholds are the decision thresholds from §4.5, exposed as
// configuration because the source disagreed on their defaults (§9).
type Thresholds struct {
	Dialogue float64
	Music    float64
}

// DefaultThresholds matches the spec's adopted defaults (T_dialogue=0.15,
// T_music=0.35); the 0.20/0.40 alternative remains reachable via flags.
var DefaultThresholds = Thresholds{Dialogue: 0.15, Music: 0.35}

// Classifier applies the §4.5 scoring rules. It holds no mutable state:
// Classify is a pure function of its inputs (§8 idempotence property).
type Classifier struct {
	Thresholds Thresholds
}

// New returns a Classifier using t as its decision thresholds.
func New(t Thresholds) *Classifier {
	return &Classifier{Thresholds: t}
}

// Classify scores f against the six rules of §4.5 and returns the
// resulting label, confidence, and both raw scores.
func (c *Classifier) Classify(f spectrum.Features) Result {
	var scoreDialogue, scoreMusic float64

	// Rule 1: formants with low background.
	switch {
	case f.VoiceFormantsRatio > 0.08 && f.BackgroundMusicRatio < 0.20:
		scoreDialogue += 0.35
	case f.VoiceFormantsRatio > 0.05:
		scoreDialogue += 0.20
	}

	// Rule 2: voice energy.
	switch {
	case f.VoiceEnergyRatio > 0.45:
		scoreDialogue += 0.25
	case f.VoiceEnergyRatio > 0.30:
		scoreDialogue += 0.15
	}

	// Rule 3: bass-to-voice.
	if f.BassToVoice < 0.5 {
		scoreDialogue += 0.15
	}
	if f.BassToVoice > 1.5 {
		scoreMusic += 0.25
	}

	// Rule 4: background music presence.
	if f.BackgroundMusicRatio > 0.40 {
		scoreMusic += 0.30
	}

	// Rule 5: spectral variation.
	if f.SpectralVariation < 0.8 {
		scoreDialogue += 0.10
	}
	if f.SpectralVariation > 1.5 {
		scoreMusic += 0.15
	}

	// Rule 6: high-band presence.
	if f.HighRatio > 0.15 {
		scoreMusic += 0.10
	}

	scoreDialogue = clamp01(scoreDialogue)
	scoreMusic = clamp01(scoreMusic)

	res := Result{
		Features:      f,
		DialogueScore: scoreDialogue,
		MusicScore:    scoreMusic,
	}

	switch {
	case scoreDialogue >= c.Thresholds.Dialogue && scoreDialogue > scoreMusic:
		res.Label = Dialogue
		res.Confidence = scoreDialogue
	case scoreMusic >= c.Thresholds.Music && scoreMusic > scoreDialogue:
		res.Label = Music
		res.Confidence = scoreMusic
	default:
		res.Label = Unknown
		res.Confidence = max(scoreDialogue, scoreMusic)
	}

	return res
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
