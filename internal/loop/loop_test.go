package loop

import (
	"context"
	"testing"
	"time"

	"github.com/linuxmatters/agc/internal/audio"
	"github.com/linuxmatters/agc/internal/config"
	"github.com/linuxmatters/agc/internal/telemetry"
	"github.com/linuxmatters/agc/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ch chan audio.Chunk
}

func newFakeSource() *fakeSource { return &fakeSource{ch: make(chan audio.Chunk, 64)} }

func (f *fakeSource) Chunks() <-chan audio.Chunk { return f.ch }
func (f *fakeSource) Close() error               { return nil }

type fakeInput struct {
	ch chan UserEvent
}

func newFakeInput() *fakeInput { return &fakeInput{ch: make(chan UserEvent, 8)} }

func (f *fakeInput) Events() <-chan UserEvent { return f.ch }

type fakeSink struct {
	snapshots []StatusSnapshot
}

func (f *fakeSink) Publish(s StatusSnapshot) { f.snapshots = append(f.snapshots, s) }

type fakeRenderer struct {
	setCalls int
}

func (f *fakeRenderer) Discover(ctx context.Context, name string) (volume.Handle, error) {
	return "h", nil
}
func (f *fakeRenderer) GetVolume(ctx context.Context, h volume.Handle) (int, error) { return 50, nil }
func (f *fakeRenderer) Close(h volume.Handle)                                       {}
func (f *fakeRenderer) SetVolume(ctx context.Context, h volume.Handle, v int) error {
	f.setCalls++
	return nil
}

func newTestLoop(t *testing.T, source Source, input UserInput, sink StatusSink) (*Loop, *fakeRenderer, *volume.State) {
	t.Helper()
	cfg := config.Defaults()
	cfg.SampleRate = 8000
	cfg.ChunkDuration = 0.25
	cfg.BaselineDumpPath = ""
	require.NoError(t, config.Validate(cfg))

	log := telemetry.New(nullWriter{}, 100, nil)
	r := &fakeRenderer{}
	state := &volume.State{
		CurrentVolume:     50,
		HasCurrentVolume:  true,
		BaselineMax:       cfg.VolumeBaselineMax,
		HardMax:           cfg.VolumeMax,
		HardMin:           cfg.VolumeMin,
		TargetDB:          cfg.TargetDB,
		ThresholdLoud:     cfg.ThresholdLoud,
		ThresholdQuiet:    cfg.ThresholdQuiet,
		SilenceThreshold:  cfg.SilenceThreshold,
		MinAdjustInterval: time.Duration(cfg.MinAdjustInterval * float64(time.Second)),
		Step:              cfg.Step,
	}
	controller := volume.NewController(r, "h", time.Second)
	l := New(cfg, log, controller, state, source, input, sink)
	return l, r, state
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSilentInputProducesNoAutoCommands(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	l, r, _ := newTestLoop(t, src, newFakeInput(), sink)

	n := l.cfg.WindowSamples()
	silence := make([]float32, n*3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	src.ch <- audio.Chunk{Samples: silence, Timestamp: time.Now()}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not shut down after cancel")
	}

	assert.Equal(t, 0, r.setCalls, "expected no set_volume calls for silent input")
	assert.NotEmpty(t, sink.snapshots, "expected at least one published snapshot")
}

func TestManualEventsFlowThroughToController(t *testing.T) {
	src := newFakeSource()
	input := newFakeInput()
	sink := &fakeSink{}
	l, r, state := newTestLoop(t, src, input, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	input.ch <- VolumeUp
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, r.setCalls)
	assert.Equal(t, 52, state.CurrentVolume)
}

func TestQuitEventStopsLoopGracefully(t *testing.T) {
	src := newFakeSource()
	input := newFakeInput()
	sink := &fakeSink{}
	l, _, _ := newTestLoop(t, src, input, sink)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	input.ch <- Quit

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on Quit")
	}
}
