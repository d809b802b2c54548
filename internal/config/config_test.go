package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testOptions struct {
	Config         string
	BackendURL     string  `toml:"backend.url" env:"BACKEND_URL"`
	MinSegments    int     `toml:"stream.min_segments" env:"STREAM_MIN_SEGMENTS"`
	PollIntervalMs int     `toml:"stream.poll_interval_ms" env:"STREAM_POLL_INTERVAL_MS"`
	InferFps       float64 `toml:"detect.infer_fps" env:"DETECT_INFER_FPS"`
	JournalEnabled bool    `toml:"logging.journal" env:"LOGGING_JOURNAL"`
}

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
[backend]
url = "http://127.0.0.1:8000"

[stream]
min_segments = 3
poll_interval_ms = 250

[detect]
infer_fps = 4.5

[logging]
journal = true
`)

	opts := testOptions{Config: path, BackendURL: "http://localhost:8000", MinSegments: 2}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.BackendURL != "http://127.0.0.1:8000" {
		t.Errorf("BackendURL = %q", opts.BackendURL)
	}
	if opts.MinSegments != 3 {
		t.Errorf("MinSegments = %d", opts.MinSegments)
	}
	if opts.PollIntervalMs != 250 {
		t.Errorf("PollIntervalMs = %d", opts.PollIntervalMs)
	}
	if opts.InferFps != 4.5 {
		t.Errorf("InferFps = %v", opts.InferFps)
	}
	if !opts.JournalEnabled {
		t.Error("JournalEnabled = false")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[stream]
min_segments = 3
`)
	t.Setenv(EnvPrefix+"STREAM_MIN_SEGMENTS", "5")
	t.Setenv(EnvPrefix+"DETECT_INFER_FPS", "2.5")

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.MinSegments != 5 {
		t.Errorf("MinSegments = %d, want env value 5", opts.MinSegments)
	}
	if opts.InferFps != 2.5 {
		t.Errorf("InferFps = %v, want env value 2.5", opts.InferFps)
	}
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	opts := testOptions{Config: filepath.Join(t.TempDir(), "missing.toml"), MinSegments: 2}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if opts.MinSegments != 2 {
		t.Errorf("defaults disturbed: MinSegments = %d", opts.MinSegments)
	}
}

func TestLoadConfigBadTOML(t *testing.T) {
	path := writeConfig(t, "not [valid toml")
	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"PollIntervalMs": "poll-interval-ms",
		"BackendURL":     "backend-u-r-l",
	}
	for in, want := range tests {
		if got := flagName(in); got != want {
			t.Errorf("flagName(%q) = %q, want %q", in, got, want)
		}
	}
}
