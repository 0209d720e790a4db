package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeText(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trims whitespace",
			in:   "  In the beginning  ",
			want: "In the beginning",
		},
		{
			name: "composes decomposed characters",
			in:   "e\u0301",
			want: "\u00e9",
		},
		{
			name: "already normalized",
			in:   "ሰላም",
			want: "ሰላም",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if got := ParseLogLevel("DEBUG"); got != log.DebugLevel {
		t.Errorf("expected debug level, got %v", got)
	}
	if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
		t.Errorf("expected info level fallback, got %v", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty ids, got %q and %q", a, b)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "versehub.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}
	logger.Info("hello")

	if got := readFile(t, path); got == "" {
		t.Error("expected log file to contain output")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{350, "350ms"},
		{1200, "1.2s"},
		{59_949, "59.9s"},
		{125_000, "2m05s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
