package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is set")
	}
}

func TestInitializeLevelFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := InitializeTo("", []string{"stderr"}); err != nil {
		t.Fatalf("InitializeTo() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) || core.Enabled(zapcore.InfoLevel) {
		t.Error("logger should be enabled at warn and above only")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("simulation", 3, "0101")
	LogStateChange("/dev/null", "Idle", "Listening")

	if logs.Len() != 2 {
		t.Fatalf("logged %d entries, want 2", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "Frame received" {
		t.Errorf("Message = %q, want %q", entry.Message, "Frame received")
	}
	if got := entry.ContextMap()["seq"]; got != int64(3) {
		t.Errorf("seq = %v, want 3", got)
	}
}

func TestDumps(t *testing.T) {
	if got := hexDump([]byte{0x0A, 0xFF}); got != "0aff" {
		t.Errorf("hexDump() = %q, want %q", got, "0aff")
	}
	if got := asciiDump([]byte("a\nb")); got != "a.b" {
		t.Errorf("asciiDump() = %q, want %q", got, "a.b")
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate() = %q, want %q", got, "abc...")
	}
}

func TestInitializeFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	path := filepath.Join(t.TempDir(), "tramesniff.log")

	if err := InitializeFile("info", path); err != nil {
		t.Fatalf("InitializeFile() error = %v", err)
	}
	defer SetLogger(nil)

	Info("Port opened", zap.String("port", "/dev/ttyUSB0"))
	Debug("not written")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "Port opened") {
		t.Errorf("log file = %q, want the info entry", out)
	}
	if strings.Contains(out, "not written") {
		t.Errorf("log file = %q, should not contain debug entries", out)
	}
}
