// Package cli parses the agc command line into an internal/config.Config
// and provides the styled banner/help/summary output.
package cli

import "github.com/linuxmatters/agc/internal/config"

// CLI is the kong-parsed flag surface (§6.1, plus the threshold-dialogue
// and threshold-music flags from SUPPLEMENTED FEATURES).
type CLI struct {
	Version bool `help:"Print version and exit." short:"V"`
	Debug   bool `help:"Enable verbose debug logging to agc-debug.log."`

	Device      string `help:"Renderer device name to discover." default:"AceituTele"`
	DeviceIndex int    `help:"Audio input device index; -1 selects the default." default:"-1"`
	ListDevices bool   `help:"List available audio input devices and exit."`

	VolumeMin         int `help:"Lowest volume any command may set." default:"20"`
	VolumeMax         int `help:"Highest volume any command may set." default:"80"`
	VolumeBaselineMax int `help:"Highest volume an automatic command may set." default:"70"`

	ThresholdLoud  float64 `help:"dB above which audio is considered loud." default:"-15"`
	ThresholdQuiet float64 `help:"dB below which audio is considered quiet." default:"-35"`
	TargetDB       float64 `help:"Comfortable listening level in dB." default:"-20"`

	ThresholdDialogue float64 `help:"Classifier confidence threshold for the dialogue label." default:"0.15"`
	ThresholdMusic    float64 `help:"Classifier confidence threshold for the music label." default:"0.35"`

	Step int `help:"Volume step size for automatic adjustments (1-10); manual key presses always move by 2." default:"5"`

	BaselineDump string `help:"Path to write the learned baseline on graceful exit; empty disables it." default:"agc-baseline.yaml"`
}

// ToConfig resolves the parsed CLI flags into a config.Config, leaving
// every field not named on the command line at its package default.
func (c *CLI) ToConfig() *config.Config {
	cfg := config.Defaults()

	cfg.Device = c.Device
	cfg.DeviceIndex = c.DeviceIndex
	cfg.ListDevices = c.ListDevices

	cfg.VolumeMin = c.VolumeMin
	cfg.VolumeMax = c.VolumeMax
	cfg.VolumeBaselineMax = c.VolumeBaselineMax

	cfg.ThresholdLoud = c.ThresholdLoud
	cfg.ThresholdQuiet = c.ThresholdQuiet
	cfg.TargetDB = c.TargetDB

	cfg.ThresholdDialogue = c.ThresholdDialogue
	cfg.ThresholdMusic = c.ThresholdMusic

	cfg.Step = c.Step
	cfg.BaselineDumpPath = c.BaselineDump
	cfg.Debug = c.Debug

	return cfg
}
