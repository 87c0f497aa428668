// Package config holds the AGC runtime configuration: CLI-derived defaults
// and a validation pass that produces InvalidConfig rejections (exit code 2).
package config

import "fmt"

// Default values, mirrored in the CLI flag help text (§6.1).
const (
	DefaultDevice            = "AceituTele"
	DefaultDeviceIndex       = -1
	DefaultSampleRate        = 44100
	DefaultChunkDuration     = 0.4 // seconds, in [0.25, 1.0]
	DefaultHistoryLength     = 5
	DefaultVolumeMin         = 20
	DefaultVolumeMax         = 80
	DefaultVolumeBaselineMax = 70
	DefaultThresholdLoud     = -15.0
	DefaultThresholdQuiet    = -35.0
	DefaultTargetDB          = -20.0
	DefaultSilenceThreshold  = -65.0
	DefaultStep              = 5
	DefaultMinAdjustInterval = 0.4 // seconds, in [0.3, 0.5]
	DefaultSetVolumeTimeout  = 2.0 // seconds, hard timeout per §5
	DefaultThresholdDialogue = 0.15
	DefaultThresholdMusic    = 0.35

	// StepMin and StepMax bound the configurable volume step (§3).
	StepMin = 1
	StepMax = 10

	// TargetDBFloor and TargetDBCeiling bound the adaptive baseline (§4.7).
	TargetDBFloor   = -50.0
	TargetDBCeiling = -10.0
)

// Config is the fully-resolved set of knobs the core loop is built from.
// It is immutable after Validate succeeds; the adaptive baseline mutates
// a derived ControllerState, never this struct.
type Config struct {
	Device      string
	DeviceIndex int
	ListDevices bool

	SampleRate    int
	ChunkDuration float64
	HistoryLength int

	VolumeMin         int
	VolumeMax         int
	VolumeBaselineMax int

	ThresholdLoud     float64
	ThresholdQuiet    float64
	TargetDB          float64
	SilenceThreshold  float64
	ThresholdDialogue float64
	ThresholdMusic    float64

	Step              int
	MinAdjustInterval float64
	SetVolumeTimeout  float64

	BaselineDumpPath string
	Debug            bool
}

// Defaults returns a Config populated with the §6.1 defaults.
func Defaults() *Config {
	return &Config{
		Device:      DefaultDevice,
		DeviceIndex: DefaultDeviceIndex,

		SampleRate:    DefaultSampleRate,
		ChunkDuration: DefaultChunkDuration,
		HistoryLength: DefaultHistoryLength,

		VolumeMin:         DefaultVolumeMin,
		VolumeMax:         DefaultVolumeMax,
		VolumeBaselineMax: DefaultVolumeBaselineMax,

		ThresholdLoud:     DefaultThresholdLoud,
		ThresholdQuiet:    DefaultThresholdQuiet,
		TargetDB:          DefaultTargetDB,
		SilenceThreshold:  DefaultSilenceThreshold,
		ThresholdDialogue: DefaultThresholdDialogue,
		ThresholdMusic:    DefaultThresholdMusic,

		Step:              DefaultStep,
		MinAdjustInterval: DefaultMinAdjustInterval,
		SetVolumeTimeout:  DefaultSetVolumeTimeout,

		BaselineDumpPath: "agc-baseline.yaml",
	}
}

// Validate rejects out-of-range configuration before the core loop starts.
// Every error here is an InvalidConfig fault (§7), exit code 2.
func Validate(cfg *Config) error {
	if err := validateVolumeRange(cfg); err != nil {
		return err
	}
	if err := validateThresholds(cfg); err != nil {
		return err
	}
	if err := validateTiming(cfg); err != nil {
		return err
	}
	return nil
}

func validateVolumeRange(cfg *Config) error {
	if cfg.VolumeMin < 0 || cfg.VolumeMin > 100 {
		return fmt.Errorf("volume-min must be in [0,100] (got %d)", cfg.VolumeMin)
	}
	if cfg.VolumeMax < 0 || cfg.VolumeMax > 100 {
		return fmt.Errorf("volume-max must be in [0,100] (got %d)", cfg.VolumeMax)
	}
	if cfg.VolumeMin > cfg.VolumeMax {
		return fmt.Errorf("volume-min (%d) must not exceed volume-max (%d)", cfg.VolumeMin, cfg.VolumeMax)
	}
	if cfg.VolumeBaselineMax < cfg.VolumeMin || cfg.VolumeBaselineMax > cfg.VolumeMax {
		return fmt.Errorf("volume-baseline-max (%d) must be within [volume-min, volume-max] = [%d,%d]",
			cfg.VolumeBaselineMax, cfg.VolumeMin, cfg.VolumeMax)
	}
	if cfg.Step < StepMin || cfg.Step > StepMax {
		return fmt.Errorf("step must be in [%d,%d] (got %d)", StepMin, StepMax, cfg.Step)
	}
	return nil
}

func validateThresholds(cfg *Config) error {
	if cfg.ThresholdQuiet >= cfg.ThresholdLoud {
		return fmt.Errorf("threshold-quiet (%.1f) must be less than threshold-loud (%.1f)",
			cfg.ThresholdQuiet, cfg.ThresholdLoud)
	}
	if cfg.TargetDB < TargetDBFloor || cfg.TargetDB > TargetDBCeiling {
		return fmt.Errorf("target-db must be in [%.0f,%.0f] (got %.1f)", TargetDBFloor, TargetDBCeiling, cfg.TargetDB)
	}
	if cfg.ThresholdDialogue < 0 || cfg.ThresholdDialogue > 1 {
		return fmt.Errorf("threshold-dialogue must be in [0,1] (got %.2f)", cfg.ThresholdDialogue)
	}
	if cfg.ThresholdMusic < 0 || cfg.ThresholdMusic > 1 {
		return fmt.Errorf("threshold-music must be in [0,1] (got %.2f)", cfg.ThresholdMusic)
	}
	return nil
}

func validateTiming(cfg *Config) error {
	if cfg.ChunkDuration < 0.25 || cfg.ChunkDuration > 1.0 {
		return fmt.Errorf("chunk duration must be in [0.25,1.0]s (got %.3f)", cfg.ChunkDuration)
	}
	if cfg.MinAdjustInterval < 0.3 || cfg.MinAdjustInterval > 0.5 {
		return fmt.Errorf("min adjust interval must be in [0.3,0.5]s (got %.3f)", cfg.MinAdjustInterval)
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive (got %d)", cfg.SampleRate)
	}
	if cfg.HistoryLength <= 0 {
		return fmt.Errorf("history length must be positive (got %d)", cfg.HistoryLength)
	}
	if cfg.SetVolumeTimeout <= 0 {
		return fmt.Errorf("set-volume timeout must be positive (got %.2f)", cfg.SetVolumeTimeout)
	}
	return nil
}

// WindowSamples returns N, the fixed window length in samples (§3).
func (cfg *Config) WindowSamples() int {
	return int(float64(cfg.SampleRate)*cfg.ChunkDuration + 0.5)
}
