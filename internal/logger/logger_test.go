package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", Debug},
		{"INFO", Info},
		{"warn", Warn},
		{"warning", Warn},
		{"error", Error},
		{" Error ", Error},
		{"", Info},
		{"verbose", Info},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevelFilteringAndFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.log")
	if err := Init(true, "warn", path, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Init(false, "", "", false)

	Infof("dropped %d", 1)
	Warnf("kept %s", "warning")
	Errorf("kept error")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line passed a warn-level sink:\n%s", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "kept warning") {
		t.Fatalf("warn line missing:\n%s", out)
	}
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "kept error") {
		t.Fatalf("error line missing:\n%s", out)
	}
}

func TestUninitializedLoggerIsSilent(t *testing.T) {
	if err := Init(false, "", "", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Must not panic or write anywhere.
	Debugf("x")
	Infof("x")
	Warnf("x")
	Errorf("x")
}
