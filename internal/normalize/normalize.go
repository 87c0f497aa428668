// Package normalize scales a window for analysis only; it never mutates
// the signal the level meter sees (C3, §4.3).
package normalize

import (
	"math"

	"github.com/linuxmatters/agc/internal/level"
)

// DefaultTargetRMS and DefaultMaxGain are the analysis pre-gain defaults.
// The microphone may sit several meters from the source, so classification
// features (which are scale-sensitive) need a controlled pre-gain; the
// gain cap keeps noise-floor amplification from faking high-band energy.
const (
	DefaultTargetRMS = 0.15
	DefaultMaxGain   = 20.0
)

// Normalizer scales windows toward a target RMS, bounded by a max gain.
type Normalizer struct {
	TargetRMS float64
	MaxGain   float64
}

// New returns a Normalizer configured with the package defaults.
func New() *Normalizer {
	return &Normalizer{TargetRMS: DefaultTargetRMS, MaxGain: DefaultMaxGain}
}

// Gain computes the clamp(target_rms/max(rms,eps), 0, max_gain) factor
// for a window whose measured RMS is rms. Always in [0, MaxGain] (§8.8).
func (nz *Normalizer) Gain(rms float64) float64 {
	g := nz.TargetRMS / math.Max(rms, level.Epsilon)
	if g < 0 {
		return 0
	}
	if g > nz.MaxGain {
		return nz.MaxGain
	}
	return g
}

// Apply returns a new slice holding x scaled by its computed gain. The
// input x is left untouched; the result feeds the spectral analyzer only.
func (nz *Normalizer) Apply(x []float32, rms float64) []float32 {
	g := nz.Gain(rms)
	out := make([]float32, len(x))
	for i, s := range x {
		out[i] = float32(float64(s) * g)
	}
	return out
}
