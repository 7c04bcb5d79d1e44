package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[observer]
latitude_deg = 37.4
longitude_deg = -122.1
altitude_m = 30

[constellations.starlink]
candidate_target = 500
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Observer.LatitudeDeg != 37.4 {
		t.Fatalf("expected overridden latitude, got %v", cfg.Observer.LatitudeDeg)
	}
	if cfg.Constellations.Starlink.CandidateTarget != 500 {
		t.Fatalf("expected overridden candidate target, got %d", cfg.Constellations.Starlink.CandidateTarget)
	}
	// Fields absent from the TOML fall back to defaults.
	if cfg.Constellations.OneWeb.CandidateTarget != 113 {
		t.Fatalf("expected default oneweb target, got %d", cfg.Constellations.OneWeb.CandidateTarget)
	}
	if cfg.Annealing.CoolingRate != 0.95 {
		t.Fatalf("expected default cooling rate, got %v", cfg.Annealing.CoolingRate)
	}
}

func TestValidateRejectsBadLatitude(t *testing.T) {
	cfg := Default()
	cfg.Observer.LatitudeDeg = 200
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
}

func TestValidateRejectsBadCoolingRate(t *testing.T) {
	cfg := Default()
	cfg.Annealing.CoolingRate = 1.5
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for cooling rate outside (0,1)")
	}
}

func TestListProfilesEmptyDirReturnsNil(t *testing.T) {
	dir := t.TempDir()
	profiles, err := ListProfiles(dir)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected no profiles, got %d", len(profiles))
	}
}

func TestListProfilesMissingDirReturnsNilNoError(t *testing.T) {
	profiles, err := ListProfiles(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if profiles != nil {
		t.Fatalf("expected nil profiles, got %v", profiles)
	}
}
