package volume

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linuxmatters/agc/internal/classify"
)

type fakeRenderer struct {
	volume    int
	setCalls  int
	failNext  int
	lastSet   int
}

func (f *fakeRenderer) Discover(ctx context.Context, name string) (Handle, error) { return "h", nil }
func (f *fakeRenderer) GetVolume(ctx context.Context, h Handle) (int, error)      { return f.volume, nil }
func (f *fakeRenderer) Close(h Handle)                                           {}

func (f *fakeRenderer) SetVolume(ctx context.Context, h Handle, v int) error {
	f.setCalls++
	if f.failNext > 0 {
		f.failNext--
		return errors.New("transient failure")
	}
	f.volume = v
	f.lastSet = v
	return nil
}

func baseState() *State {
	return &State{
		CurrentVolume:     50,
		BaselineMax:       70,
		HardMax:           100,
		HardMin:           10,
		TargetDB:          -20,
		ThresholdLoud:     -15,
		ThresholdQuiet:    -35,
		SilenceThreshold:  -65,
		MinAdjustInterval: 400 * time.Millisecond,
		Step:              5,
	}
}

func TestAutoNeverExceedsBaselineMax(t *testing.T) {
	r := &fakeRenderer{volume: 68}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 68

	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		dec, err := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if s.CurrentVolume > s.BaselineMax {
			t.Fatalf("auto volume %d exceeded baseline max %d (decision=%+v)", s.CurrentVolume, s.BaselineMax, dec)
		}
	}
}

func TestAutoNeverBelowHardMin(t *testing.T) {
	r := &fakeRenderer{volume: 12}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 12

	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		if _, err := c.Tick(context.Background(), s, classify.Music, 0.9, 0, now); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if s.CurrentVolume < s.HardMin {
			t.Fatalf("auto volume %d fell below hard min %d", s.CurrentVolume, s.HardMin)
		}
	}
}

func TestManualMayExceedBaselineMaxButNotHardMax(t *testing.T) {
	r := &fakeRenderer{volume: 70}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 70

	now := time.Now()
	for i := 0; i < 20; i++ {
		if err := c.ManualVolume(context.Background(), s, Up, now); err != nil {
			t.Fatalf("manual up %d: %v", i, err)
		}
		if s.CurrentVolume > s.HardMax {
			t.Fatalf("manual volume %d exceeded hard max %d", s.CurrentVolume, s.HardMax)
		}
	}
	if s.CurrentVolume <= s.BaselineMax {
		t.Fatalf("expected manual input to be able to exceed baseline max %d, got %d", s.BaselineMax, s.CurrentVolume)
	}
}

func TestRateLimitEnforcesMinimumSpacing(t *testing.T) {
	r := &fakeRenderer{volume: 30}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 30

	now := time.Now()
	dec1, _ := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now)
	if !dec1.Applied {
		t.Fatalf("expected first tick to apply")
	}
	firstAdjust := s.LastAdjustAt

	// Immediately try again, well inside MinAdjustInterval.
	dec2, _ := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now.Add(10*time.Millisecond))
	if dec2.Applied {
		t.Fatalf("expected rate limit to suppress a tick inside MinAdjustInterval")
	}
	if s.LastAdjustAt != firstAdjust {
		t.Fatalf("expected LastAdjustAt unchanged on suppressed tick")
	}
}

func TestManualHoldSuppressesAutoCommandsFor10Seconds(t *testing.T) {
	r := &fakeRenderer{volume: 50}
	c := NewController(r, "h", time.Second)
	s := baseState()

	now := time.Now()
	if err := c.ManualVolume(context.Background(), s, Up, now); err != nil {
		t.Fatalf("manual: %v", err)
	}

	for _, offset := range []time.Duration{0, time.Second, 5 * time.Second, 9900 * time.Millisecond} {
		dec, _ := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now.Add(offset))
		if dec.Applied {
			t.Fatalf("expected no auto command at offset %v during manual hold", offset)
		}
	}

	dec, _ := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now.Add(11*time.Second))
	if !dec.Applied {
		t.Fatalf("expected auto command to resume after manual hold expires")
	}
}

func TestSilenceGuardSuppressesAutoCommands(t *testing.T) {
	r := &fakeRenderer{volume: 50}
	c := NewController(r, "h", time.Second)
	s := baseState()

	now := time.Now()
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		dec, _ := c.Tick(context.Background(), s, classify.Unknown, 0, s.SilenceThreshold, now)
		if dec.Applied {
			t.Fatalf("expected no auto command at or below silence threshold")
		}
	}
	if r.setCalls != 0 {
		t.Fatalf("expected no set_volume calls for silent windows, got %d", r.setCalls)
	}
}

func TestZeroDeltaDoesNotCallSetVolume(t *testing.T) {
	r := &fakeRenderer{volume: 50}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 50 // already at target_db, dialogue with d == target_db takes the "else" branch (no change)

	now := time.Now()
	dec, err := c.Tick(context.Background(), s, classify.Dialogue, 0.5, s.TargetDB, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if dec.Applied {
		t.Fatalf("expected no-op tick at target_db to not apply")
	}
	if r.setCalls != 0 {
		t.Fatalf("expected set_volume not called when delta is zero, got %d calls", r.setCalls)
	}
}

func TestRendererFailureLeavesStateUnchanged(t *testing.T) {
	r := &fakeRenderer{volume: 30, failNext: 1}
	c := NewController(r, "h", time.Second)
	s := baseState()
	s.CurrentVolume = 30

	now := time.Now()
	_, err := c.Tick(context.Background(), s, classify.Dialogue, 0.9, -40, now)
	if err == nil {
		t.Fatalf("expected renderer failure to propagate")
	}
	if s.CurrentVolume != 30 {
		t.Fatalf("expected CurrentVolume unchanged on failure, got %d", s.CurrentVolume)
	}
	if !s.LastAdjustAt.IsZero() {
		t.Fatalf("expected LastAdjustAt untouched on failure")
	}
}
