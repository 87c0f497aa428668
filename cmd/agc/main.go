// Command agc runs the automatic gain control loop: it discovers a
// network media-renderer, listens to a microphone, classifies what it
// hears, and nudges the renderer's volume toward a comfortable target.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/linuxmatters/agc/internal/audio"
	"github.com/linuxmatters/agc/internal/cli"
	"github.com/linuxmatters/agc/internal/config"
	"github.com/linuxmatters/agc/internal/logging"
	"github.com/linuxmatters/agc/internal/loop"
	"github.com/linuxmatters/agc/internal/renderer"
	"github.com/linuxmatters/agc/internal/telemetry"
	"github.com/linuxmatters/agc/internal/ui"
	"github.com/linuxmatters/agc/internal/volume"
)

// version is set via ldflags at build time.
// Local dev builds: "dev"
// Release builds: git tag (e.g. "0.1.0")
var version = "dev"

const discoverTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cliArgs := &cli.CLI{}
	kong.Parse(cliArgs,
		kong.Name("agc"),
		kong.Description("Automatic gain control for a network media-renderer"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		return 0
	}

	cfg := cliArgs.ToConfig()
	if err := config.Validate(cfg); err != nil {
		cli.PrintError(fmt.Sprintf("invalid configuration: %v", err))
		return 2
	}

	var debugFile *os.File
	if cfg.Debug {
		f, err := os.Create("agc-debug.log")
		if err == nil {
			debugFile = f
			defer debugFile.Close()
		}
	}
	level := charmlog.InfoLevel
	if cfg.Debug {
		level = charmlog.DebugLevel
	}
	log := telemetry.New(os.Stderr, level, debugFile)

	mic, err := audio.NewMic()
	if err != nil {
		cli.PrintError(fmt.Sprintf("audio backend unavailable: %v", err))
		return 4
	}
	defer mic.Close()

	if cfg.ListDevices {
		devices, err := mic.Devices()
		if err != nil {
			cli.PrintError(fmt.Sprintf("listing devices: %v", err))
			return 4
		}
		cli.PrintSection("Available audio input devices")
		for _, d := range devices {
			fmt.Printf("  [%d] %s\n", d.Index, d.Name)
		}
		return 0
	}

	cli.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discoverCtx, cancelDiscover := context.WithTimeout(ctx, discoverTimeout)
	defer cancelDiscover()

	rendererClient := renderer.New(log)
	handle, err := rendererClient.Discover(discoverCtx, cfg.Device)
	if err != nil {
		log.Emit(telemetry.Event{Kind: telemetry.KindRendererUnreachablePersistent, Message: "renderer discovery failed", Fields: []any{"device", cfg.Device, "err", err}})
		cli.PrintError(fmt.Sprintf("renderer %q not found: %v", cfg.Device, err))
		return 3
	}

	currentVolume, err := rendererClient.GetVolume(ctx, handle)
	hasVolume := err == nil

	source, err := mic.Open(ctx, cfg.DeviceIndex, cfg.SampleRate, true)
	if err != nil {
		cli.PrintError(fmt.Sprintf("opening audio device: %v", err))
		return 4
	}

	timeout := time.Duration(cfg.SetVolumeTimeout * float64(time.Second))
	controller := volume.NewController(rendererClient, handle, timeout)
	state := &volume.State{
		CurrentVolume:     currentVolume,
		HasCurrentVolume:  hasVolume,
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
	startVolume, startTargetDB := state.CurrentVolume, state.TargetDB
	startThresholdLoud, startThresholdQuiet := state.ThresholdLoud, state.ThresholdQuiet

	dashboard := ui.NewDashboard()
	coreLoop := loop.New(cfg, log, controller, state, source, dashboard, dashboard)

	program := tea.NewProgram(ui.NewModel(dashboard), tea.WithAltScreen())

	loopErrCh := make(chan error, 1)
	go func() {
		err := coreLoop.Run(ctx)
		program.Send(ui.LoopStoppedMsg{Err: err})
		loopErrCh <- err
	}()

	startTime := time.Now()
	_, progErr := program.Run()

	var loopErr error
	select {
	case loopErr = <-loopErrCh:
	case <-time.After(time.Second):
	}
	source.Close()

	if progErr != nil {
		cli.PrintError(fmt.Sprintf("dashboard error: %v", progErr))
	}

	exitCode := 0
	var deviceLost *loop.DeviceLostError
	if errors.As(loopErr, &deviceLost) {
		cli.PrintError(fmt.Sprintf("audio device lost: %v", loopErr))
		exitCode = 4
	} else if ctx.Err() != nil {
		exitCode = 130
	}

	totals := logging.SessionTotals{
		StartVolume:         startVolume,
		EndVolume:           state.CurrentVolume,
		StartTargetDB:       startTargetDB,
		EndTargetDB:         state.TargetDB,
		StartThresholdLoud:  startThresholdLoud,
		EndThresholdLoud:    state.ThresholdLoud,
		StartThresholdQuiet: startThresholdQuiet,
		EndThresholdQuiet:   state.ThresholdQuiet,
		AutoCommands:        state.AutoCommands,
		CaptureGaps:         coreLoop.Gaps(),
	}
	fmt.Println(logging.RenderSessionTable(totals))
	cli.PrintSessionSummary(cli.FormatDuration(time.Since(startTime)), state.AutoCommands, coreLoop.Gaps(), state.CurrentVolume, state.TargetDB)

	return exitCode
}
