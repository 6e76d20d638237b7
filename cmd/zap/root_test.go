package main

import (
	"os"
	"path/filepath"
	"testing"
)

// isolateEnv keeps the host's real config file and environment out of
// the test run.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ZAP_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
}

func TestRun_UsageErrors(t *testing.T) {
	isolateEnv(t)

	cases := []struct {
		name string
		args []string
	}{
		{"no args", []string{}},
		{"one arg", []string{"nas:/data/big.iso"}},
		{"three args", []string{"a", "b", "c"}},
		{"unknown flag", []string{"--bogus", "src", "nas:/dst"}},
		{"negative streams", []string{"--streams", "-2", "src", "nas:/dst"}},
		{"negative port", []string{"--port", "-1", "src", "nas:/dst"}},
		{"malformed timeout", []string{"--connect-timeout", "soon", "src", "nas:/dst"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := Run(tc.args); code != exitBadUsage {
				t.Errorf("Run(%v) = %d, want %d", tc.args, code, exitBadUsage)
			}
		})
	}
}

func TestRun_ValidationErrors(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}

	cases := []struct {
		name string
		args []string
	}{
		{"zero streams", []string{"--streams", "0", src, "nas:/dst"}},
		{"port out of range", []string{"--port", "70000", src, "nas:/dst"}},
		{"both local", []string{src, filepath.Join(dir, "copy.bin")}},
		{"both remote", []string{"nas:/a", "nas:/b"}},
		{"missing source", []string{filepath.Join(dir, "missing.bin"), "nas:/dst"}},
		{"missing identity", []string{"-i", filepath.Join(dir, "no-key"), src, "nas:/dst"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := Run(tc.args); code != exitFailure {
				t.Errorf("Run(%v) = %d, want %d", tc.args, code, exitFailure)
			}
		})
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"--version"}} {
		if code := Run(args); code != exitOK {
			t.Errorf("Run(%v) = %d, want %d", args, code, exitOK)
		}
	}
}

func TestMergeConfig_FlagPrecedence(t *testing.T) {
	isolateEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "transfer:\n  streams: 8\nssh:\n  port: 2200\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--streams", "4"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg, err := mergeConfig(cmd, opts)
	if err != nil {
		t.Fatalf("mergeConfig failed: %v", err)
	}

	if cfg.Transfer.Streams != 4 {
		t.Errorf("Expected flag to override file, got streams %d", cfg.Transfer.Streams)
	}
	if cfg.SSH.Port != 2200 {
		t.Errorf("Expected file to override default, got port %d", cfg.SSH.Port)
	}
	if cfg.Transfer.MaxRetries != 3 {
		t.Errorf("Expected default retries 3, got %d", cfg.Transfer.MaxRetries)
	}
}

func TestMergeConfig_LogLevelFlags(t *testing.T) {
	isolateEnv(t)

	cases := []struct {
		name  string
		flags []string
		want  string
	}{
		{"default", nil, "info"},
		{"quiet", []string{"-q"}, "error"},
		{"verbose", []string{"-v"}, "debug"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := &options{}
			cmd := newRootCmd(opts)
			if err := cmd.ParseFlags(tc.flags); err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			cfg, err := mergeConfig(cmd, opts)
			if err != nil {
				t.Fatalf("mergeConfig failed: %v", err)
			}
			if cfg.Log.Level != tc.want {
				t.Errorf("Expected log level %q, got %q", tc.want, cfg.Log.Level)
			}
		})
	}
}
