// Package spectrum turns a normalized window into band-energy features
// via a real FFT (C4, §4.4, §3). The windowing-function open question is
// resolved here: a Hann window is always applied before the FFT, so
// behavior stays consistent across runs regardless of input.
package spectrum

import (
	"math"

	"github.com/linuxmatters/agc/internal/level"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Band names and their half-open frequency ranges in Hz (§3).
const (
	Bass           = "bass"
	VoiceFund      = "voice_fund"
	VoiceFormants  = "voice_formants"
	VoiceHarmonics = "voice_harmonics"
	HighMid        = "high_mid"
	High           = "high"
)

type bandRange struct {
	name     string
	lo, hi   float64 // hi == 0 means "up to Nyquist"
}

var bandOrder = []bandRange{
	{Bass, 20, 200},
	{VoiceFund, 200, 500},
	{VoiceFormants, 500, 2000},
	{VoiceHarmonics, 2000, 4000},
	{HighMid, 4000, 8000},
	{High, 8000, 0},
}

// Bands holds total and per-band magnitude sums for one window, plus the
// mean and stddev of the positive-frequency half-spectrum.
type Bands struct {
	Total float64
	ByName map[string]float64

	Mean   float64
	StdDev float64
}

// Features are the derived, unitless quantities used by the classifier.
type Features struct {
	VoiceFormantsRatio  float64
	VoiceEnergyRatio    float64
	BassRatio           float64
	HighRatio           float64
	BassToVoice         float64
	BackgroundMusicRatio float64
	SpectralVariation   float64
}

// Analyzer computes Bands and Features for fixed-length windows at a
// known sample rate via a real FFT, Hann-windowed.
type Analyzer struct {
	sampleRate int
	fft        *fourier.FFT
	n          int
}

// NewAnalyzer builds an Analyzer for windows of n samples at sampleRate.
func NewAnalyzer(n, sampleRate int) *Analyzer {
	return &Analyzer{
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(n),
		n:          n,
	}
}

// hann applies a Hann window in place on a copy of x.
func hann(x []float64) []float64 {
	n := len(x)
	windowed := make([]float64, n)
	if n == 1 {
		windowed[0] = x[0]
		return windowed
	}
	for i, v := range x {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = v * w
	}
	return windowed
}

// Analyze runs the Hann-windowed real FFT over x (already normalized by
// C3) and reduces the positive-frequency half-spectrum into Bands.
func (a *Analyzer) Analyze(x []float32) Bands {
	in := make([]float64, len(x))
	for i, s := range x {
		in[i] = float64(s)
	}
	windowed := hann(in)
	coeffs := a.fft.Coefficients(nil, windowed)

	// Coefficients already holds only the n/2+1 non-negative-frequency bins.
	magnitudes := make([]float64, len(coeffs))
	for i, c := range coeffs {
		magnitudes[i] = math.Hypot(real(c), imag(c))
	}

	freqPerBin := float64(a.sampleRate) / float64(a.n)
	nyquist := float64(a.sampleRate) / 2

	byName := make(map[string]float64, len(bandOrder))
	var total float64
	for _, b := range bandOrder {
		hi := b.hi
		if hi == 0 {
			hi = nyquist
		}
		var sum float64
		for i, mag := range magnitudes {
			freq := float64(i) * freqPerBin
			if freq >= b.lo && freq < hi {
				sum += mag
			}
		}
		byName[b.name] = sum
		total += sum
	}

	mean := stat.Mean(magnitudes, nil)
	var stddev float64
	if len(magnitudes) > 1 {
		stddev = stat.StdDev(magnitudes, nil)
	}

	return Bands{Total: total, ByName: byName, Mean: mean, StdDev: stddev}
}

// Derive computes the unitless features of §3 from Bands, all clamped to
// [0,1] where the spec calls for a ratio (background_music_ratio is the
// one quantity the source let exceed 1; it is clamped here too).
func (b Bands) Derive() Features {
	total := math.Max(b.Total, level.Epsilon)
	bass := b.ByName[Bass]
	voiceFund := b.ByName[VoiceFund]
	voiceFormants := b.ByName[VoiceFormants]
	voiceHarmonics := b.ByName[VoiceHarmonics]
	high := b.ByName[High]

	voiceTotal := voiceFund + voiceFormants + voiceHarmonics
	voiceDenom := math.Max(voiceTotal, level.Epsilon)

	f := Features{
		VoiceFormantsRatio:   clamp01(voiceFormants / total),
		VoiceEnergyRatio:     clamp01(voiceTotal / total),
		BassRatio:            clamp01(bass / total),
		HighRatio:            clamp01(high / total),
		BassToVoice:          bass / voiceDenom,
		BackgroundMusicRatio: clamp01((bass + high) / voiceDenom),
	}
	if b.Mean > level.Epsilon {
		f.SpectralVariation = b.StdDev / math.Max(b.Mean, level.Epsilon)
	}
	return f
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
