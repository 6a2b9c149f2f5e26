package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/procdrive"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &SessionConfig{}

	if got := cfg.GetVehicleID(); got != 0 {
		t.Errorf("GetVehicleID() = %d, want 0", got)
	}
	if got := cfg.GetDiscoveryTimeout(); got != procdrive.DefaultDiscoveryTimeout {
		t.Errorf("GetDiscoveryTimeout() = %v", got)
	}
	if got := cfg.GetConnectTimeout(); got != procdrive.DefaultConnectTimeout {
		t.Errorf("GetConnectTimeout() = %v", got)
	}
	if got := cfg.GetCommandQueue(); got != procdrive.DefaultCommandQueue {
		t.Errorf("GetCommandQueue() = %d", got)
	}
	if got := cfg.GetAcceleration(); got != procdrive.DefaultAcceleration {
		t.Errorf("GetAcceleration() = %d", got)
	}
	if got := cfg.GetAlignSpeed(); got != procdrive.DefaultAlignSpeed {
		t.Errorf("GetAlignSpeed() = %d", got)
	}
	if got := cfg.GetScanSpeed(); got != procdrive.DefaultScanSpeed {
		t.Errorf("GetScanSpeed() = %d", got)
	}
	if got := cfg.GetHorizontalSpeed(); got != procdrive.DefaultHorizontalSpeed {
		t.Errorf("GetHorizontalSpeed() = %d", got)
	}
	if got := cfg.GetHorizontalAcceleration(); got != procdrive.DefaultHorizontalAcceleration {
		t.Errorf("GetHorizontalAcceleration() = %d", got)
	}
	if got := cfg.GetLocale(); got != "en-US" {
		t.Errorf("GetLocale() = %q", got)
	}
	serial := cfg.GetSerial()
	if serial.BaudRate != 115200 || serial.Parity != "N" {
		t.Errorf("GetSerial() = %+v", serial)
	}
	if n := len(cfg.SessionOptions()); n != 4 {
		t.Errorf("SessionOptions() returned %d options", n)
	}
}

func TestLoadSessionConfig(t *testing.T) {
	path := writeConfig(t, "session.json", `{
  "vehicle_id": 7,
  "discovery_timeout": "2s",
  "align_speed": 450,
  "serial": {"baud_rate": 57600, "parity": "even"},
  "locale": "de-DE"
}`)

	cfg, err := LoadSessionConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetVehicleID() != 7 {
		t.Errorf("GetVehicleID() = %d, want 7", cfg.GetVehicleID())
	}
	if cfg.GetDiscoveryTimeout() != 2*time.Second {
		t.Errorf("GetDiscoveryTimeout() = %v, want 2s", cfg.GetDiscoveryTimeout())
	}
	// omitted fields keep their defaults
	if cfg.GetConnectTimeout() != procdrive.DefaultConnectTimeout {
		t.Errorf("GetConnectTimeout() = %v", cfg.GetConnectTimeout())
	}
	if cfg.GetAlignSpeed() != 450 {
		t.Errorf("GetAlignSpeed() = %d, want 450", cfg.GetAlignSpeed())
	}
	if cfg.GetScanSpeed() != procdrive.DefaultScanSpeed {
		t.Errorf("GetScanSpeed() = %d", cfg.GetScanSpeed())
	}
	serial := cfg.GetSerial()
	if serial.BaudRate != 57600 || serial.Parity != "E" || serial.DataBits != 8 {
		t.Errorf("GetSerial() = %+v", serial)
	}
	if cfg.GetLocale() != "de-DE" {
		t.Errorf("GetLocale() = %q", cfg.GetLocale())
	}
}

func TestLoadSessionConfig_Example(t *testing.T) {
	cfg, err := LoadSessionConfig(filepath.Join("..", "..", ExampleConfigPath))
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.GetCommandQueue() != 64 {
		t.Errorf("GetCommandQueue() = %d, want 64", cfg.GetCommandQueue())
	}
}

func TestLoadSessionConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "session.yaml", `{}`, ".json extension"},
		{"bad json", "session.json", `{"vehicle_id": `, "parse config JSON"},
		{"negative vehicle", "session.json", `{"vehicle_id": -1}`, "vehicle_id"},
		{"bad duration", "session.json", `{"connect_timeout": "soon"}`, "connect_timeout"},
		{"zero duration", "session.json", `{"discovery_timeout": "0s"}`, "discovery_timeout"},
		{"empty queue", "session.json", `{"command_queue": 0}`, "command_queue"},
		{"negative speed", "session.json", `{"scan_speed": -5}`, "scan_speed"},
		{"bad parity", "session.json", `{"serial": {"parity": "X"}}`, "serial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSessionConfig(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadSessionConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDurationOrIgnoresInvalid(t *testing.T) {
	bad := "later"
	if got := durationOr(&bad, time.Second); got != time.Second {
		t.Errorf("durationOr(invalid) = %v, want fallback", got)
	}
	if got := durationOr(nil, time.Minute); got != time.Minute {
		t.Errorf("durationOr(nil) = %v", got)
	}
}
