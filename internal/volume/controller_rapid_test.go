package volume

import (
	"context"
	"testing"
	"time"

	"github.com/linuxmatters/agc/internal/classify"
	"pgregory.net/rapid"
)

// TestRapidAutoCommandsRespectCaps exercises §8 properties 3 and 8-style
// bound checks across generated controller states and classifier outputs.
func TestRapidAutoCommandsRespectCaps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hardMin := rapid.IntRange(0, 40).Draw(rt, "hardMin")
		hardMax := rapid.IntRange(hardMin, 100).Draw(rt, "hardMax")
		baselineMax := rapid.IntRange(hardMin, hardMax).Draw(rt, "baselineMax")
		current := rapid.IntRange(hardMin, hardMax).Draw(rt, "current")
		label := classify.Label(rapid.IntRange(0, 2).Draw(rt, "label"))
		confidence := rapid.Float64Range(0, 1).Draw(rt, "confidence")
		db := rapid.Float64Range(-100, 0).Draw(rt, "db")

		s := &State{
			CurrentVolume:     current,
			BaselineMax:       baselineMax,
			HardMax:           hardMax,
			HardMin:           hardMin,
			TargetDB:          -20,
			ThresholdLoud:     -15,
			ThresholdQuiet:    -35,
			SilenceThreshold:  -65,
			MinAdjustInterval: 400 * time.Millisecond,
			Step:              5,
		}

		r := &fakeRenderer{volume: current}
		c := NewController(r, "h", time.Second)

		dec, err := c.Tick(context.Background(), s, label, confidence, db, time.Now())
		if err != nil {
			rt.Fatalf("tick returned error: %v", err)
		}

		if s.CurrentVolume < hardMin || s.CurrentVolume > hardMax {
			rt.Fatalf("volume %d escaped [hardMin,hardMax]=[%d,%d]", s.CurrentVolume, hardMin, hardMax)
		}
		if label == classify.Dialogue && dec.Applied && s.CurrentVolume > baselineMax {
			rt.Fatalf("auto dialogue command %d exceeded baseline max %d", s.CurrentVolume, baselineMax)
		}
	})
}

// TestRapidSilenceGuardAlwaysSuppresses covers §8 property 7.
func TestRapidSilenceGuardAlwaysSuppresses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db := rapid.Float64Range(-200, -65).Draw(rt, "db")
		label := classify.Label(rapid.IntRange(0, 2).Draw(rt, "label"))
		confidence := rapid.Float64Range(0, 1).Draw(rt, "confidence")

		s := baseState()
		r := &fakeRenderer{volume: s.CurrentVolume}
		c := NewController(r, "h", time.Second)

		dec, err := c.Tick(context.Background(), s, label, confidence, db, time.Now())
		if err != nil {
			rt.Fatalf("tick returned error: %v", err)
		}
		if dec.Applied {
			rt.Fatalf("expected silence guard to suppress command at db=%v", db)
		}
	})
}
