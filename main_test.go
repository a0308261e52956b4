package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/OliverSchlueter/smtpcheck/internal/smtptest"
)

var envVars = []string{
	"SMTPCHECK_HOST", "SMTPCHECK_PORT", "SMTPCHECK_USER", "SMTPCHECK_SENDER",
	"SMTPCHECK_RECIPIENT", "SMTPCHECK_PASSWORD", "SMTPCHECK_TIMEOUT", "SMTPCHECK_VERBOSE",
	"SMTPCHECK_DKIM_KEY_FILE", "SMTPCHECK_DKIM_SELECTOR", "LOG_LEVEL", "LOKI_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func TestParseArgsFlagsOverrideConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMTPCHECK_HOST", "env.example.test")
	t.Setenv("SMTPCHECK_PORT", "2525")

	path := filepath.Join(t.TempDir(), "smtpcheck.yaml")
	content := "smtp:\n  host: file.example.test\n  user: alice@example.test\n  recipient: bob@example.test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, opts, err := parseArgs([]string{"-config", path, "-host", "flag.example.test", "-timeout", "9s", "-reference"}, io.Discard)
	if err != nil {
		t.Fatalf("Failed to parse args: %v", err)
	}

	if cfg.SMTP.Host != "flag.example.test" {
		t.Errorf("Expected flag host to win, got %s", cfg.SMTP.Host)
	}
	// not set on the command line, so the env value stays
	if cfg.SMTP.Port != 2525 {
		t.Errorf("Expected env port 2525, got %d", cfg.SMTP.Port)
	}
	if cfg.SMTP.User != "alice@example.test" {
		t.Errorf("Expected user from file, got %s", cfg.SMTP.User)
	}
	if cfg.SMTP.Timeout != 9*time.Second {
		t.Errorf("Expected timeout 9s, got %s", cfg.SMTP.Timeout)
	}
	if !opts.reference {
		t.Error("Expected reference to be enabled")
	}
}

func TestParseArgsErrors(t *testing.T) {
	clearEnv(t)

	if _, _, err := parseArgs([]string{"-port", "abc"}, io.Discard); err == nil {
		t.Error("Expected error for an invalid port flag")
	}
	if _, _, err := parseArgs([]string{"extra"}, io.Discard); err == nil {
		t.Error("Expected error for positional arguments")
	}
	if _, _, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard); err == nil {
		t.Error("Expected error for a missing config file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}

	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	clearEnv(t)

	srv := smtptest.NewServer(smtptest.Configuration{Hostname: "example.test"})
	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer srv.Close()
	host, port := srv.Addr()

	base := func(extra ...string) []string {
		return append([]string{"-host", host, "-port", strconv.Itoa(port), "-user", "alice@example.test", "-timeout", "2s"}, extra...)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"completed", base("-recipient", "bob@remote.test"), exitCompleted},
		{"rejected recipient", base("-recipient", "<bad"), exitFailed},
		{"missing recipient", base(), exitUsage},
		{"bad flag", []string{"-nope"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := run(tt.args, &stderr); got != tt.want {
				t.Errorf("Expected exit code %d, got %d (%s)", tt.want, got, stderr.String())
			}
		})
	}
}
