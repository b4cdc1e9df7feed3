package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[playback]
video = "/srv/wall.mp4"
output = "HDMI-1"
scale = "fit"
loop = false

[metrics]
listen = ":9300"
`)

	opts := DefaultOptions()
	opts.Config = path
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Video != "/srv/wall.mp4" {
		t.Errorf("Video = %q", opts.Video)
	}
	if opts.Output != "HDMI-1" {
		t.Errorf("Output = %q", opts.Output)
	}
	if opts.Scale != "fit" {
		t.Errorf("Scale = %q", opts.Scale)
	}
	if opts.Loop {
		t.Error("Loop not overridden by file")
	}
	if opts.MetricsListen != ":9300" {
		t.Errorf("MetricsListen = %q", opts.MetricsListen)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[playback]
output = "HDMI-1"
`)
	t.Setenv("WLVIDEO_OUTPUT", "DP-3")

	opts := DefaultOptions()
	opts.Config = path
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Output != "DP-3" {
		t.Errorf("Output = %q, want env value DP-3", opts.Output)
	}
}

func TestCLIBeatsEnvAndTOML(t *testing.T) {
	path := writeConfig(t, `
[playback]
output = "HDMI-1"
`)
	t.Setenv("WLVIDEO_OUTPUT", "DP-3")

	opts := DefaultOptions()
	opts.Config = path

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", opts.Output, "")
	if err := cmd.Flags().Set("output", "eDP-1"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.Output != "eDP-1" {
		t.Errorf("Output = %q, want CLI value eDP-1", opts.Output)
	}
}

func TestDefaultsSurviveMissingFile(t *testing.T) {
	opts := DefaultOptions()
	opts.Config = "/nonexistent/config.toml"
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if opts.Output != "*" || opts.Scale != "fill" || !opts.Loop || !opts.Hwaccel {
		t.Errorf("defaults clobbered: %+v", opts)
	}
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, `this is not toml = = =`)
	opts := DefaultOptions()
	opts.Config = path
	if err := LoadConfig(&opts, nil); err == nil {
		t.Error("malformed TOML accepted")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
player = "warn"
render = "debug"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level=%q format=%q", cfg.Level, cfg.Format)
	}
	if cfg.Modules["player"] != "warn" || cfg.Modules["render"] != "debug" {
		t.Errorf("modules = %v", cfg.Modules)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("defaults: level=%q format=%q", cfg.Level, cfg.Format)
	}
}
