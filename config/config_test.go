package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected Default(), got %+v", cfg)
	}
}

func TestLoadParsesYAMLAndFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "osim.yml")
	yamlDoc := "machine:\n  total_frames: 1024\n  num_ttys: 8\ntime_slice: 20\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Machine.TotalFrames != 1024 {
		t.Fatalf("expected total_frames overridden to 1024, got %d", cfg.Machine.TotalFrames)
	}
	if cfg.Machine.NumTTYs != 8 {
		t.Fatalf("expected num_ttys overridden to 8, got %d", cfg.Machine.NumTTYs)
	}
	if cfg.TimeSlice != 20 {
		t.Fatalf("expected time_slice 20, got %d", cfg.TimeSlice)
	}
	if cfg.Machine.RegionPages != Default().Machine.RegionPages {
		t.Fatalf("expected region_pages to fall back to default, got %d", cfg.Machine.RegionPages)
	}
	if cfg.Machine.SwapDir != Default().Machine.SwapDir {
		t.Fatalf("expected swap_dir to fall back to default, got %q", cfg.Machine.SwapDir)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestBootConfigCarriesMachineFields(t *testing.T) {
	cfg := Default()
	cfg.KernelStackPages = 3
	bc := cfg.BootConfig()

	if bc.Machine.TotalFrames != cfg.Machine.TotalFrames {
		t.Fatal("expected BootConfig to carry TotalFrames through")
	}
	if bc.KernelStackPages != 3 {
		t.Fatal("expected BootConfig to carry KernelStackPages through")
	}
}
