package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/samvad-hq/osrm-kit/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitInstallsPackageLogger(t *testing.T) {
	t.Cleanup(func() { S = nil })

	log, err := Init(&config.Config{AppName: "osrm-kit", Env: "test", LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if S == nil {
		t.Fatalf("expected package logger to be set")
	}

	var _ Logger = log
	var _ Logger = NopLogger{}
	log.DebugObj("debug", "k", map[string]any{"a": 1})
	InfoObj("info", "k", "v")
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	S = nil
	InfoObj("x", "k", nil)
	DebugObj("x", "k", nil)
	WarnObj("x", "k", nil)
	ErrorObj("x", "k", nil)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
}
