// Package level computes RMS and dBFS for a PCM window (C2, §4.2).
package level

import "math"

// Epsilon floors denominators throughout the pipeline so no division by
// zero can occur (§7 propagation policy).
const Epsilon = 1e-9

// Floor is the minimum reported dBFS value for digital silence.
const Floor = -100.0

// RMS computes the root-mean-square of x.
func RMS(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range x {
		v := float64(s)
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(x)))
}

// DBFS converts an RMS value to decibels relative to full scale, floored
// at Floor. Pure and deterministic: same input always yields same output.
func DBFS(rms float64) float64 {
	db := 20 * math.Log10(math.Max(rms, Epsilon))
	if db < Floor {
		return Floor
	}
	return db
}

// Measure returns both RMS and dBFS for a window in one pass.
func Measure(x []float32) (rms, db float64) {
	rms = RMS(x)
	db = DBFS(rms)
	return rms, db
}
