package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/config"
	"github.com/banshee-data/procdrive/internal/monitoring"
)

func testEnv() config.Env {
	return config.Env{Link: "sim", Locale: "en-US"}
}

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func TestParseLane(t *testing.T) {
	tests := []struct {
		name    string
		scheme  procdrive.LaneScheme
		want    procdrive.Lane
		wantErr bool
	}{
		{"left", procdrive.ThreeLanes, procdrive.Left3, false},
		{" Middle ", procdrive.ThreeLanes, procdrive.Middle3, false},
		{"mid-right", procdrive.FourLanes, procdrive.MidRight4, false},
		{"right", procdrive.FourLanes, procdrive.Right4, false},
		{"middle", procdrive.FourLanes, nil, true},
		{"left", procdrive.LaneScheme(5), nil, true},
	}
	for _, tt := range tests {
		got, err := parseLane(tt.name, tt.scheme)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLane(%q, %v) error = %v, wantErr %v", tt.name, tt.scheme, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLane(%q, %v) = %v, want %v", tt.name, tt.scheme, got, tt.want)
		}
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), testEnv(), []string{"fly"}, &out); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(out.String(), "usage: procdrive") {
		t.Errorf("usage not printed: %q", out.String())
	}
}

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), testEnv(), []string{"help", "-locale", "de-DE"}, &out); err != nil {
		t.Fatalf("help: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Funktionen:", "Verbinde (connect)", "FahreZumStart (align_to_start)"} {
		if !strings.Contains(text, want) {
			t.Errorf("German help is missing %q", want)
		}
	}

	out.Reset()
	if err := dispatch(context.Background(), testEnv(), []string{"help", "set_speed"}, &out); err != nil {
		t.Fatalf("help set_speed: %v", err)
	}
	if !strings.Contains(out.String(), "500 mm/s²") {
		t.Errorf("set_speed help = %q", out.String())
	}

	if err := dispatch(context.Background(), testEnv(), []string{"help", "fly"}, &out); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestDriveRecordAndReport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "drive.db")

	var out bytes.Buffer
	err := dispatch(context.Background(), testEnv(), []string{
		"drive", "-db", dbPath, "-speed", "500", "-duration", "1500ms", "-lane", "right", "-units", "kmph",
	}, &out)
	if err != nil {
		t.Fatalf("drive: %v\n%s", err, out.String())
	}
	text := out.String()
	for _, want := range []string{"connected to vehicle 1", "recording session", "km/h", "stopped"} {
		if !strings.Contains(text, want) {
			t.Errorf("drive output is missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	png := filepath.Join(t.TempDir(), "speed.png")
	if err := dispatch(context.Background(), testEnv(), []string{"report", "-db", dbPath, "-png", png}, &out); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.HasPrefix(out.String(), "samples ") {
		t.Errorf("report output = %q", out.String())
	}
	if info, err := os.Stat(png); err != nil || info.Size() == 0 {
		t.Errorf("speed plot not written: %v", err)
	}
}

func TestDriveRejectsBadUnits(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), testEnv(), []string{"drive", "-units", "furlongs"}, &out)
	if err == nil || !strings.Contains(err.Error(), "invalid units") {
		t.Errorf("error = %v", err)
	}
}

func TestReportRequiresDB(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), testEnv(), []string{"report"}, &out); err == nil {
		t.Error("expected error without -db")
	}
}

func TestTailSimulator(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), testEnv(), []string{"tail", "-duration", "300ms"}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if !strings.Contains(out.String(), "adv 1 ") {
		t.Errorf("tail did not print the advertisement: %q", out.String())
	}
}

func TestOpenLinkBadLayout(t *testing.T) {
	_, err := openLink(context.Background(), "sim", filepath.Join(t.TempDir(), "missing.yaml"), procdrive.SerialOptions{})
	if err == nil {
		t.Error("expected error for missing layout")
	}
}

func TestReportRejectsOutsidePNG(t *testing.T) {
	var out bytes.Buffer
	args := []string{"report", "-db", filepath.Join(t.TempDir(), "x.db"), "-png", "/etc/speed.png"}
	if err := dispatch(context.Background(), testEnv(), args, &out); err == nil {
		t.Error("expected error for a plot path outside the working and temp directories")
	}
}
