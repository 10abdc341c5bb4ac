package config

import (
	"os"
	"testing"

	"github.com/matryer/is"
)

func TestLoadDefaults(t *testing.T) {
	is := is.New(t)
	clearEnv(t)

	cfg, err := Load()
	is.NoErr(err)
	is.Equal(cfg.ListenAddr, defaultListenAddr)
	is.Equal(cfg.TargetSeconds, defaultTargetSeconds)
	is.Equal(cfg.TelemetryHost, "")
}

func TestLoadRejectsBadTargetSeconds(t *testing.T) {
	is := is.New(t)
	clearEnv(t)
	os.Setenv("M4HLS_TARGET_SECONDS", "not-a-number")
	defer os.Unsetenv("M4HLS_TARGET_SECONDS")

	_, err := Load()
	is.True(err != nil)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	is := is.New(t)
	clearEnv(t)
	os.Setenv("M4HLS_TARGET_SECONDS", "6")
	os.Setenv("M4HLS_SOURCE_ROOT", "/media")
	defer os.Unsetenv("M4HLS_TARGET_SECONDS")
	defer os.Unsetenv("M4HLS_SOURCE_ROOT")

	cfg, err := Load()
	is.NoErr(err)
	is.Equal(cfg.TargetSeconds, 6)
	is.Equal(cfg.SourceRoot, "/media")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"M4HLS_LISTEN_ADDR", "M4HLS_SOURCE_ROOT", "M4HLS_TARGET_SECONDS",
		"M4HLS_VERSION_STRING", "M4HLS_TELEMETRY_HOST", "M4HLS_TELEMETRY_RATE",
	} {
		os.Unsetenv(k)
	}
}
