package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	for _, inst := range []Instrument{
		InstrumentVoice, InstrumentGuitar, InstrumentBass,
		InstrumentViolin, InstrumentGeneric,
	} {
		if err := ForInstrument(inst).Validate(); err != nil {
			t.Fatalf("%s preset must validate: %v", inst, err)
		}
	}
}

func TestForInstrumentPresets(t *testing.T) {
	bass := ForInstrument(InstrumentBass)
	if bass.Detection.MaxFreq != 400.0 {
		t.Fatalf("bass preset should cap range at 400 Hz, got %.1f", bass.Detection.MaxFreq)
	}
	if bass.Gate.HistoryLen <= Default().Gate.HistoryLen {
		t.Fatalf("bass preset should widen the median window")
	}
	if bass.Smoother.BassTauMs <= Default().Smoother.BassTauMs {
		t.Fatalf("bass preset should smooth harder at the bottom")
	}

	voice := ForInstrument(InstrumentVoice)
	if voice.Gate.ToleranceCents <= Default().Gate.ToleranceCents {
		t.Fatalf("voice preset should loosen tolerance for vibrato")
	}

	// Unknown instruments fall back to the generic defaults
	unknown := ForInstrument(Instrument("theremin"))
	if *unknown != *Default() {
		t.Fatalf("unknown instrument should return defaults")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Detection.SampleRate = 0 }},
		{"inverted range", func(c *Config) { c.Detection.MinFreq = 900; c.Detection.MaxFreq = 30 }},
		{"threshold out of range", func(c *Config) { c.Detection.YinThreshold = 1.5 }},
		{"zero tolerance", func(c *Config) { c.Gate.ToleranceCents = 0 }},
		{"negative hysteresis", func(c *Config) { c.Gate.HysteresisCents = -1 }},
		{"zero hold", func(c *Config) { c.Gate.HoldMs = 0 }},
		{"tick beyond lookahead", func(c *Config) { c.Scheduler.TickSec = 0.5 }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "woodshed.yaml")

	cfg := ForInstrument(InstrumentBass)
	cfg.Gate.ToleranceCents = 22.5
	cfg.Smoother.Strategy = SmootherOneEuro

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "gate:\n  tolerance_cents: 18\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gate.ToleranceCents != 18.0 {
		t.Fatalf("expected override 18 cents, got %.1f", cfg.Gate.ToleranceCents)
	}
	if cfg.Gate.HoldMs != Default().Gate.HoldMs {
		t.Fatalf("unset field should keep its default, got %.1f", cfg.Gate.HoldMs)
	}
	if cfg.Detection.SampleRate != 44100 {
		t.Fatalf("unrelated section should keep defaults, got %d", cfg.Detection.SampleRate)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("detection:\n  sample_rate: -1\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected error for invalid values")
	}

	garbage := filepath.Join(dir, "garbage.yaml")
	if err := os.WriteFile(garbage, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(garbage); err == nil {
		t.Fatalf("expected error for unparseable file")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
