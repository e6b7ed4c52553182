package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testOptions struct {
	Config       string
	Port         string `toml:"server.port" env:"SERVER_PORT"`
	DevicePath   string `toml:"camera.device_path" env:"CAMERA_DEVICE_PATH"`
	LoggingLevel string `toml:"logging.level" env:"LOGGING_LEVEL"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"

[camera]
device_path = "/dev/video2"
`)

	opts := &testOptions{Config: path, Port: ":8090"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() = %v, want nil", err)
	}
	if opts.Port != ":9000" {
		t.Errorf("Port = %q, want %q", opts.Port, ":9000")
	}
	if opts.DevicePath != "/dev/video2" {
		t.Errorf("DevicePath = %q, want %q", opts.DevicePath, "/dev/video2")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[camera]
device_path = "/dev/video2"
`)
	t.Setenv("CAMHAL_CAMERA_DEVICE_PATH", "/dev/video7")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() = %v, want nil", err)
	}
	if opts.DevicePath != "/dev/video7" {
		t.Errorf("DevicePath = %q, want env override %q", opts.DevicePath, "/dev/video7")
	}
}

func TestMissingConfigFileIsNotFatal(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/config.toml", Port: ":8090"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() with missing file = %v, want nil", err)
	}
	if opts.Port != ":8090" {
		t.Errorf("Port = %q, want default preserved", opts.Port)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
hal = "warn"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("logging config = %+v, want debug/json", cfg)
	}
	if cfg.Modules["hal"] != "warn" {
		t.Errorf("hal module level = %q, want %q", cfg.Modules["hal"], "warn")
	}

	defaults := LoadLoggingConfig("/nonexistent.toml")
	if defaults.Level != "info" || defaults.Format != "text" {
		t.Errorf("default logging config = %+v, want info/text", defaults)
	}
}
