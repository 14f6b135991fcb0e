package camera

import "testing"

func TestPresetsValidate(t *testing.T) {
	for _, name := range []string{PresetDefault, PresetVGA, Preset720p} {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("8k") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Width: 10, Height: 10, Framerate: 0, Quality: 101}
	if errs := cfg.Validate(); len(errs) != 4 {
		t.Errorf("expected 4 errors, got %v", errs)
	}
}
