// Package baseline implements the adaptive target-dB nudge driven by
// manual corrections, with no persistence across runs (C7, §4.7).
package baseline

import "github.com/linuxmatters/agc/internal/config"

// Direction of a manual volume adjustment.
type Direction int

const (
	Up Direction = iota
	Down
)

// manualEvent is one recorded (volume_after, smoothed_dB) observation.
type manualEvent struct {
	dir    Direction
	volume int
	db     float64
}

// Adaptive tracks manual corrections and nudges target_db and its paired
// thresholds when two successive corrections show a consistent direction.
// It holds no persistent store; state lives only for the process lifetime.
type Adaptive struct {
	last *manualEvent
}

// New returns an Adaptive with no prior manual event recorded.
func New() *Adaptive {
	return &Adaptive{}
}

// Adjustment is the nudge to apply to target_db (and, by the caller, to
// threshold_loud/threshold_quiet by the same amount to preserve their
// difference). A zero Delta means no adjustment this event.
type Adjustment struct {
	Delta float64
}

// Record processes one manual adjustment. volumeAfter is the volume
// following the key press; smoothedDB is the current smoothed level.
// If this event continues the same direction as the prior one, and the
// user kept pushing while already at or beyond target_db, the returned
// Delta is ±1 dB. Record does not bound the result; Clamp keeps target_db
// within [TargetDBFloor, TargetDBCeiling].
func (a *Adaptive) Record(dir Direction, volumeAfter int, smoothedDB, targetDB float64) Adjustment {
	defer func() { a.last = &manualEvent{dir: dir, volume: volumeAfter, db: smoothedDB} }()

	if a.last == nil || a.last.dir != dir {
		return Adjustment{}
	}

	consistent := false
	switch dir {
	case Up:
		consistent = smoothedDB >= targetDB
	case Down:
		consistent = smoothedDB <= targetDB
	}
	if !consistent {
		return Adjustment{}
	}

	delta := 1.0
	if dir == Down {
		delta = -1.0
	}
	return Adjustment{Delta: delta}
}

// Clamp bounds an adjusted target_db to the configured floor/ceiling.
func Clamp(targetDB float64) float64 {
	if targetDB < config.TargetDBFloor {
		return config.TargetDBFloor
	}
	if targetDB > config.TargetDBCeiling {
		return config.TargetDBCeiling
	}
	return targetDB
}
