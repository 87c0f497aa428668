// Package volume implements the rate-limited decision engine that turns
// smoothed classifier output into renderer volume commands (C8, §4.8),
// plus the RendererControl collaborator interface (§6.2).
package volume

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/linuxmatters/agc/internal/classify"
)

// Handle is an opaque renderer handle returned by Discover. Its concrete
// type is owned entirely by the RendererControl implementation.
type Handle any

// ErrNotFound is returned by Discover when no renderer answers.
var ErrNotFound = errors.New("renderer not found")

// RendererControl is the implementer-provided transport to the media
// renderer (§6.2). set_volume must be idempotent and may coalesce
// repeated identical values; it must honor ctx's deadline and must never
// be called while the core loop holds its state lock.
type RendererControl interface {
	Discover(ctx context.Context, name string) (Handle, error)
	GetVolume(ctx context.Context, h Handle) (int, error)
	SetVolume(ctx context.Context, h Handle, v int) error
	Close(h Handle)
}

// Mode is the controller's current arbitration mode (§4.8 state machine).
type Mode int

const (
	Auto Mode = iota
	ManualHold
)

func (m Mode) String() string {
	if m == ManualHold {
		return "manual_hold"
	}
	return "auto"
}

// Direction of a manual key-driven volume change (§6.4).
type Direction int

const (
	Up Direction = iota
	Down
)

// State is the single authoritative ControllerState of §3. It is owned
// exclusively by the core loop; every mutation happens on the control
// thread, never concurrently from audio or renderer I/O goroutines.
type State struct {
	CurrentVolume    int // last value observed from the renderer
	HasCurrentVolume bool

	BaselineMax int // cap that automatic increases must not cross
	HardMax     int // cap that any command must not cross; HardMax >= BaselineMax
	HardMin     int

	TargetDB         float64
	ThresholdLoud    float64
	ThresholdQuiet   float64
	SilenceThreshold float64

	LastAdjustAt     time.Time
	ManualPauseUntil time.Time

	MinAdjustInterval time.Duration
	Step              int

	LastManualVolume int
	LastManualDB     float64

	// AutoCommands counts every successful automatic set_volume issued by
	// Tick, for the end-of-session report.
	AutoCommands int
}

// ManualHoldDuration is the fixed suppression window after manual input (§4.8).
const ManualHoldDuration = 10 * time.Second

// ManualStep is the fixed volume delta a single Up/Down key press applies.
const ManualStep = 2

// ManualTargetStep is the fixed dB shift a single +/- key press applies.
const ManualTargetStep = 1.0

// Dialogue multiplier bounds (§4.8).
const (
	dialogueMultBase = 2.0
	dialogueMultMax  = 3.5
	musicMultBase    = 0.8
	musicMultMax     = 1.2
)

// ModeAt returns the controller's mode at time now.
func (s *State) ModeAt(now time.Time) Mode {
	if now.Before(s.ManualPauseUntil) {
		return ManualHold
	}
	return Auto
}

// PauseRemaining returns how long manual hold still has to run, or zero.
func (s *State) PauseRemaining(now time.Time) time.Duration {
	if d := s.ManualPauseUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Controller wires a RendererControl into the §4.8 decision logic.
type Controller struct {
	renderer RendererControl
	handle   Handle
	timeout  time.Duration
}

// NewController returns a Controller that issues commands to h through r,
// bounding every set_volume/get_volume call with the given timeout (§5).
func NewController(r RendererControl, h Handle, timeout time.Duration) *Controller {
	return &Controller{renderer: r, handle: h, timeout: timeout}
}

// Rediscover re-resolves name through the underlying RendererControl and,
// on success, swaps in the returned Handle for all subsequent commands.
// The previous handle is left untouched; RendererControl implementations
// that hold no per-handle resources (the common case) need not Close it.
func (c *Controller) Rediscover(ctx context.Context, name string) error {
	h, err := c.renderer.Discover(ctx, name)
	if err != nil {
		return err
	}
	c.handle = h
	return nil
}

// Decision describes the outcome of one Tick, for status/telemetry use.
type Decision struct {
	Mode    Mode
	Delta   int
	Applied bool
}

// Tick runs the §4.8 auto decision for one smoothed (label, confidence,
// dB) observation. It mutates state only on a successful set_volume, and
// never holds any external lock while calling the renderer.
func (c *Controller) Tick(ctx context.Context, s *State, label classify.Label, confidence float64, d float64, now time.Time) (Decision, error) {
	mode := s.ModeAt(now)
	if mode == ManualHold {
		return Decision{Mode: mode}, nil
	}

	// Silence guard.
	if d <= s.SilenceThreshold {
		return Decision{Mode: mode}, nil
	}

	// Rate limit.
	if !s.LastAdjustAt.IsZero() && now.Sub(s.LastAdjustAt) < s.MinAdjustInterval {
		return Decision{Mode: mode}, nil
	}

	v := s.CurrentVolume
	delta := decideDelta(s, label, confidence, d, v)
	if delta == 0 {
		return Decision{Mode: mode}, nil
	}

	target := clamp(v+delta, s.HardMin, s.HardMax)
	// Auto commands additionally respect the baseline/floor caps per label,
	// already folded into decideDelta's Δ; clamp again defensively so the
	// universal property (§8.3) holds even if a caller mutates state oddly.
	if label == classify.Dialogue {
		target = min(target, s.BaselineMax)
	}
	if target == v {
		return Decision{Mode: mode}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.renderer.SetVolume(cctx, c.handle, target); err != nil {
		return Decision{Mode: mode}, err
	}

	s.CurrentVolume = target
	s.HasCurrentVolume = true
	s.LastAdjustAt = now
	s.AutoCommands++
	return Decision{Mode: mode, Delta: delta, Applied: true}, nil
}

// decideDelta implements the §4.8 per-label action table.
func decideDelta(s *State, label classify.Label, confidence float64, d float64, v int) int {
	switch label {
	case classify.Dialogue:
		multiplier := clampF(dialogueMultBase+(confidence-0.25)*3.0, 1.0, dialogueMultMax)
		switch {
		case d < s.ThresholdQuiet:
			delta := int(math.Round(float64(s.Step) * multiplier))
			return capAuto(v, delta, s.BaselineMax)
		case d < s.TargetDB:
			return capAuto(v, s.Step, s.BaselineMax)
		default:
			return 0
		}
	case classify.Music:
		multiplier := clampF(musicMultBase+(confidence-0.5)*1.5, 0.5, musicMultMax)
		switch {
		case d > s.ThresholdLoud:
			delta := -int(math.Round(float64(s.Step) * multiplier))
			return floorAuto(v, delta, s.HardMin)
		case d > s.TargetDB+3:
			return floorAuto(v, -s.Step, s.HardMin)
		default:
			return 0
		}
	default: // Unknown
		switch {
		case d > s.ThresholdLoud:
			return -s.Step
		case d < s.ThresholdQuiet:
			return capAuto(v, s.Step, s.BaselineMax)
		default:
			return 0
		}
	}
}

// capAuto returns delta unless v+delta would exceed cap, in which case it
// is reduced so v+delta == cap (never negative beyond the original delta).
func capAuto(v, delta, cap int) int {
	if v+delta > cap {
		delta = cap - v
	}
	if delta < 0 {
		return 0
	}
	return delta
}

// floorAuto returns delta unless v+delta would go below floor, in which
// case it is reduced in magnitude so v+delta == floor.
func floorAuto(v, delta, floor int) int {
	if v+delta < floor {
		delta = floor - v
	}
	if delta > 0 {
		return 0
	}
	return delta
}

// ManualVolume applies an Up/Down key event: ±ManualStep, clamped to
// [HardMin, HardMax] (may exceed BaselineMax), and opens manual hold.
func (c *Controller) ManualVolume(ctx context.Context, s *State, dir Direction, now time.Time) error {
	delta := ManualStep
	if dir == Down {
		delta = -ManualStep
	}
	target := clamp(s.CurrentVolume+delta, s.HardMin, s.HardMax)

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.renderer.SetVolume(cctx, c.handle, target); err != nil {
		return err
	}

	s.CurrentVolume = target
	s.HasCurrentVolume = true
	s.ManualPauseUntil = now.Add(ManualHoldDuration)
	s.LastManualVolume = target
	return nil
}

// ManualTargetShift applies a +/- key event, shifting target_db and its
// paired thresholds by the same amount so their difference is preserved.
func (c *Controller) ManualTargetShift(s *State, up bool) {
	delta := ManualTargetStep
	if !up {
		delta = -ManualTargetStep
	}
	s.TargetDB += delta
	s.ThresholdLoud += delta
	s.ThresholdQuiet += delta
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
