// Package config loads the boot-time machine/kernel configuration
// cmd/osim hands to kernel/boot.Boot. It is grounded on tinyrange-cc's
// small structured run descriptors (cmd/ccapp/site_config.go's
// LoadSiteConfig, examples/shared/testrunner/spec.go's TestSpec), which
// read a YAML file via gopkg.in/yaml.v3 and fall back to zero-value
// defaults when no file is given.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"osim/kernel/boot"
	"osim/machine"
)

// Machine describes the simulated machine's shape (spec.md §6 parameters).
type Machine struct {
	TotalFrames int    `yaml:"total_frames"`
	RegionPages int    `yaml:"region_pages"`
	NumTTYs     int    `yaml:"num_ttys"`
	SwapDir     string `yaml:"swap_dir"`
}

// Config is the top-level YAML document shape.
type Config struct {
	Machine Machine `yaml:"machine"`

	KernelStackBase  int    `yaml:"kernel_stack_base"`
	KernelStackPages int    `yaml:"kernel_stack_pages"`
	TimeSlice        uint64 `yaml:"time_slice"`
}

// Default returns the configuration used when no file is given, matching
// machine.DefaultConfig's values; the kernel stack and time slice fields are
// left zero, so boot.Config applies its own defaults to them.
func Default() Config {
	mc := machine.DefaultConfig()
	return Config{
		Machine: Machine{
			TotalFrames: mc.TotalFrames,
			RegionPages: mc.RegionPages,
			NumTTYs:     mc.NumTTYs,
			SwapDir:     mc.SwapDir,
		},
	}
}

// Load reads path and parses it as YAML, merging over Default()'s values
// for any field the file leaves zero. An empty path returns Default()
// unchanged, so running with no configuration at all is always valid
// (spec.md's CLI "no other flags" default).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyMachineDefaults(&cfg)
	return cfg, nil
}

func applyMachineDefaults(cfg *Config) {
	def := Default()
	if cfg.Machine.TotalFrames <= 0 {
		cfg.Machine.TotalFrames = def.Machine.TotalFrames
	}
	if cfg.Machine.RegionPages <= 0 {
		cfg.Machine.RegionPages = def.Machine.RegionPages
	}
	if cfg.Machine.NumTTYs <= 0 {
		cfg.Machine.NumTTYs = def.Machine.NumTTYs
	}
	if cfg.Machine.SwapDir == "" {
		cfg.Machine.SwapDir = def.Machine.SwapDir
	}
}

// BootConfig converts this configuration into the boot.Config Boot
// expects.
func (c Config) BootConfig() boot.Config {
	return boot.Config{
		Machine: machine.Config{
			TotalFrames: c.Machine.TotalFrames,
			RegionPages: c.Machine.RegionPages,
			NumTTYs:     c.Machine.NumTTYs,
			SwapDir:     c.Machine.SwapDir,
		},
		KernelStackBase:  c.KernelStackBase,
		KernelStackPages: c.KernelStackPages,
		TimeSlice:        c.TimeSlice,
	}
}
