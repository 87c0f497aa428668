// Package loop implements the Core Loop / State component (C9, §4.9):
// it ticks the pipeline, dispatches user input, and serves snapshots to
// a StatusSink, while owning the single authoritative ControllerState.
package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/linuxmatters/agc/internal/audio"
	"github.com/linuxmatters/agc/internal/baseline"
	"github.com/linuxmatters/agc/internal/classify"
	"github.com/linuxmatters/agc/internal/config"
	"github.com/linuxmatters/agc/internal/history"
	"github.com/linuxmatters/agc/internal/level"
	"github.com/linuxmatters/agc/internal/normalize"
	"github.com/linuxmatters/agc/internal/pcm"
	"github.com/linuxmatters/agc/internal/renderer"
	"github.com/linuxmatters/agc/internal/spectrum"
	"github.com/linuxmatters/agc/internal/telemetry"
	"github.com/linuxmatters/agc/internal/volume"
	"gopkg.in/yaml.v3"
)

// StatusSnapshot is published to the StatusSink once per SnapshotInterval,
// plus once more on shutdown (§6.5).
type StatusSnapshot struct {
	Volume          int
	HasVolume       bool
	BaselineMax     int
	DB              float64
	Label           string
	Confidence      float64
	Mode            string
	PauseRemainingS float64
	TargetDB        float64
	Gaps            int
}

// SnapshotInterval is the publish cadence satisfying the ≤10Hz bound of §6.5.
const SnapshotInterval = 100 * time.Millisecond

// StatusSink receives periodic state snapshots (§6.5).
type StatusSink interface {
	Publish(StatusSnapshot)
}

// UserEvent enumerates the key events UserInput can deliver (§6.4).
type UserEvent int

const (
	VolumeUp UserEvent = iota
	VolumeDown
	BaselineUp
	BaselineDown
	Quit
)

// UserInput delivers key events on a channel, closed when input ends.
type UserInput interface {
	Events() <-chan UserEvent
}

// DeviceLostError is returned by Run when no audio chunk arrives for
// deviceLostTimeout or the source closes its chunk channel (§7
// AudioDeviceLost, exit code 4). Run does not try to reopen the device
// before returning it.
type DeviceLostError struct{ Err error }

func (e *DeviceLostError) Error() string { return fmt.Sprintf("audio device lost: %v", e.Err) }
func (e *DeviceLostError) Unwrap() error { return e.Err }

const deviceLostTimeout = 2 * time.Second

// rediscoverTimeout bounds a single in-loop rediscovery attempt after a
// persistent renderer failure; it does not bound how many attempts are
// made, since each subsequent persistent failure triggers another one.
const rediscoverTimeout = 5 * time.Second

// baselineDump is the optional on-exit YAML shape (§6.6, SUPPLEMENTED FEATURES).
type baselineDump struct {
	TargetDB       float64 `yaml:"target_db"`
	ThresholdLoud  float64 `yaml:"threshold_loud"`
	ThresholdQuiet float64 `yaml:"threshold_quiet"`
}

// Loop owns the ControllerState and every pipeline component exclusively;
// all mutation happens on the goroutine that calls Run (§5).
type Loop struct {
	cfg *config.Config
	log *telemetry.Logger

	assembler  *pcm.Assembler
	normalizer *normalize.Normalizer
	analyzer   *spectrum.Analyzer
	classifier *classify.Classifier
	hist       *history.Window
	adaptive   *baseline.Adaptive

	controller *volume.Controller
	state      *volume.State

	source Source
	input  UserInput
	sink   StatusSink
}

// Source is the opened capture session the loop reads from; Open
// constructs one from an audio.AudioSource before Run begins.
type Source = audio.Source

// New builds a Loop from its components. The caller is responsible for
// discovering the renderer and opening the audio source beforehand.
func New(cfg *config.Config, log *telemetry.Logger, controller *volume.Controller, state *volume.State, source Source, input UserInput, sink StatusSink) *Loop {
	n := cfg.WindowSamples()
	return &Loop{
		cfg:        cfg,
		log:        log,
		assembler:  pcm.NewAssembler(n),
		normalizer: normalize.New(),
		analyzer:   spectrum.NewAnalyzer(n, cfg.SampleRate),
		classifier: classify.New(classify.Thresholds{Dialogue: cfg.ThresholdDialogue, Music: cfg.ThresholdMusic}),
		hist:       history.NewWindow(cfg.HistoryLength),
		adaptive:   baseline.New(),
		controller: controller,
		state:      state,
		source:     source,
		input:      input,
		sink:       sink,
	}
}

// Run drives the pipeline until ctx is canceled, a fatal error occurs, or
// the UserInput delivers Quit. On graceful shutdown it flushes a final
// snapshot and, if BaselineDumpPath is set, writes the learned baseline.
func (l *Loop) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := l.source.Chunks()
	var userEvents <-chan UserEvent
	if l.input != nil {
		userEvents = l.input.Events()
	}

	snapshotTicker := time.NewTicker(SnapshotInterval)
	defer snapshotTicker.Stop()

	deviceTimer := time.NewTimer(deviceLostTimeout)
	defer deviceTimer.Stop()

	for {
		select {
		case <-runCtx.Done():
			l.publishSnapshot()
			l.dumpBaseline()
			return nil

		case ev, ok := <-userEvents:
			if !ok {
				userEvents = nil
				continue
			}
			if err := l.handleUserEvent(runCtx, ev); err != nil {
				if errors.Is(err, errQuit) {
					l.publishSnapshot()
					l.dumpBaseline()
					return nil
				}
				l.log.Info("user event handling failed", "err", err)
			}

		case chunk, ok := <-chunks:
			if !ok {
				return &DeviceLostError{Err: errors.New("audio source channel closed")}
			}
			deviceTimer.Reset(deviceLostTimeout)
			l.handleChunk(runCtx, chunk)

		case <-deviceTimer.C:
			l.log.Emit(telemetry.Event{Kind: telemetry.KindAudioDeviceLost, Message: "no audio callback for 2s"})
			return &DeviceLostError{Err: errors.New("capture callback ceased")}

		case <-snapshotTicker.C:
			l.publishSnapshot()
		}
	}
}

var errQuit = errors.New("quit requested")

func (l *Loop) handleUserEvent(ctx context.Context, ev UserEvent) error {
	now := time.Now()
	switch ev {
	case VolumeUp, VolumeDown:
		dir := volume.Up
		adaptDir := baseline.Up
		if ev == VolumeDown {
			dir = volume.Down
			adaptDir = baseline.Down
		}
		if err := l.controller.ManualVolume(ctx, l.state, dir, now); err != nil {
			l.log.Emit(telemetry.Event{Kind: telemetry.KindRendererUnreachableTransient, Message: "manual set_volume failed", Fields: []any{"err", err}})
			return nil
		}
		smoothedDB := l.hist.SmoothedDB()
		adj := l.adaptive.Record(adaptDir, l.state.CurrentVolume, smoothedDB, l.state.TargetDB)
		if adj.Delta != 0 {
			newTarget := baseline.Clamp(l.state.TargetDB + adj.Delta)
			applied := newTarget - l.state.TargetDB
			l.state.TargetDB = newTarget
			l.state.ThresholdLoud += applied
			l.state.ThresholdQuiet += applied
		}
		return nil

	case BaselineUp, BaselineDown:
		l.controller.ManualTargetShift(l.state, ev == BaselineUp)
		return nil

	case Quit:
		return errQuit
	}
	return nil
}

func (l *Loop) handleChunk(ctx context.Context, chunk audio.Chunk) {
	if chunk.Overflow {
		l.assembler.Flush()
		l.log.Emit(telemetry.Event{Kind: telemetry.KindAudioOverflow, Message: "capture overflow, buffer flushed"})
	}

	windows := l.assembler.Push(chunk.Samples)
	for _, w := range windows {
		l.processWindow(ctx, w)
	}
}

func (l *Loop) processWindow(ctx context.Context, w pcm.Window) {
	rms, db := level.Measure(w.Samples)
	normalized := l.normalizer.Apply(w.Samples, rms)
	bands := l.analyzer.Analyze(normalized)
	features := bands.Derive()
	result := l.classifier.Classify(features)

	l.hist.Push(db, result)
	smoothedLabel, smoothedConf := l.hist.Smoothed()
	smoothedDB := l.hist.SmoothedDB()

	now := time.Now()
	_, err := l.controller.Tick(ctx, l.state, smoothedLabel, smoothedConf, smoothedDB, now)
	if err != nil {
		l.log.Emit(telemetry.Event{Kind: telemetry.KindRendererUnreachableTransient, Message: "auto set_volume failed", Fields: []any{"err", err}})
		if errors.Is(err, renderer.ErrPersistentFailure) {
			l.rediscover(ctx)
		}
	}
}

// rediscover attempts to re-resolve the renderer after §7's persistent
// failure threshold, so the loop can resume auto commands without a
// process restart. Per §7 this stays a non-fatal status event: a failed
// attempt here is logged and retried the next time Tick reports a fresh
// persistent failure, while the pipeline keeps analyzing regardless.
func (l *Loop) rediscover(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, rediscoverTimeout)
	defer cancel()
	if err := l.controller.Rediscover(dctx, l.cfg.Device); err != nil {
		l.log.Info("renderer rediscovery failed, will retry on next persistent failure", "err", err)
		return
	}
	l.log.Emit(telemetry.Event{Kind: telemetry.KindRendererUnreachablePersistent, Message: "renderer rediscovered, resuming auto commands"})
}

func (l *Loop) publishSnapshot() {
	if l.sink == nil {
		return
	}
	now := time.Now()
	mode := l.state.ModeAt(now)
	label, conf := l.hist.Smoothed()
	l.sink.Publish(StatusSnapshot{
		Volume:          l.state.CurrentVolume,
		HasVolume:       l.state.HasCurrentVolume,
		BaselineMax:     l.state.BaselineMax,
		DB:              l.hist.SmoothedDB(),
		Label:           label.String(),
		Confidence:      conf,
		Mode:            mode.String(),
		PauseRemainingS: l.state.PauseRemaining(now).Seconds(),
		TargetDB:        l.state.TargetDB,
		Gaps:            l.assembler.Gaps,
	})
}

// Gaps returns the number of dropped-partial-frame capture gaps observed
// so far, for the end-of-session report.
func (l *Loop) Gaps() int { return l.assembler.Gaps }

func (l *Loop) dumpBaseline() {
	if l.cfg.BaselineDumpPath == "" {
		return
	}
	dump := baselineDump{
		TargetDB:       l.state.TargetDB,
		ThresholdLoud:  l.state.ThresholdLoud,
		ThresholdQuiet: l.state.ThresholdQuiet,
	}
	out, err := yaml.Marshal(dump)
	if err != nil {
		l.log.Info("baseline dump marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(l.cfg.BaselineDumpPath, out, 0644); err != nil {
		l.log.Info("baseline dump write failed", "err", err)
	}
}
