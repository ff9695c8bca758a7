package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"loghelper/internal/config"
	"loghelper/internal/domain"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	for _, key := range []string{"NAME", "LEVEL", "DESTINATION_LEVEL", "FORMAT", "LOG_DIR"} {
		t.Setenv(config.EnvPrefix+key, "")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	cfg := config.Config{
		Name:   "app",
		Format: "%(name)s %(levelname)s %(message)s",
		Destinations: []config.Destination{
			{Kind: domain.KindConsole},
			{Kind: domain.KindFile, Path: logPath},
		},
	}
	path := filepath.Join(dir, "logging.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path, logPath
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionString(t *testing.T) {
	if got := versionString("1.2.3", "2024-01-01", "go1.22.0"); got != "1.2.3 (2024-01-01), Go Version: go1.22.0" {
		t.Fatalf("versionString() = %q", got)
	}
	if got := versionString("dev", "", "go1.22.0"); got != "dev, Go Version: go1.22.0" {
		t.Fatalf("versionString() = %q", got)
	}
}

func TestEmit(t *testing.T) {
	path, logPath := writeConfig(t)

	testCases := map[string]struct {
		args     []string
		expected string
	}{
		"configured sink": {
			args:     []string{"emit", "warning", "disk", "full"},
			expected: "app WARNING disk full\n",
		},
		"descendant sink propagates": {
			args:     []string{"emit", "--sink", "app.worker", "error", "job failed"},
			expected: "app.worker ERROR job failed\n",
		},
		"unrelated sink receives a replay": {
			args:     []string{"emit", "--sink", "other", "info", "hello"},
			expected: "other INFO hello\n",
		},
		"below the destination threshold": {
			args:     []string{"emit", "debug", "quiet"},
			expected: "",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			out, errOut, err := run(t, "", append([]string{"--config", path}, tc.args...)...)
			if err != nil {
				t.Fatalf("Execute() error = %v, stderr = %s", err, errOut)
			}
			if out != tc.expected {
				t.Fatalf("stdout = %q, want %q", out, tc.expected)
			}
		})
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("file has %d lines, want 3:\n%s", got, data)
	}
}

func TestEmitOnRootConfiguredSink(t *testing.T) {
	for _, name := range []string{"", "root"} {
		t.Run("name "+strconv.Quote(name), func(t *testing.T) {
			for _, key := range []string{"NAME", "LEVEL", "DESTINATION_LEVEL", "FORMAT", "LOG_DIR"} {
				t.Setenv(config.EnvPrefix+key, "")
			}
			path := filepath.Join(t.TempDir(), "logging.yaml")
			cfg := config.Config{
				Name:         name,
				Format:       "%(name)s %(levelname)s %(message)s",
				Destinations: []config.Destination{{Kind: domain.KindConsole}},
			}
			if err := config.Save(path, cfg); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			out, errOut, err := run(t, "", "--config", path, "emit", "--sink", "worker", "info", "hello")
			if err != nil {
				t.Fatalf("Execute() error = %v, stderr = %s", err, errOut)
			}
			if out != "worker INFO hello\n" {
				t.Fatalf("stdout = %q, want a single line", out)
			}
		})
	}
}

func TestEmitErrors(t *testing.T) {
	path, _ := writeConfig(t)

	out, errOut, err := run(t, "", "--config", path, "emit", "warning")
	if !errors.Is(err, errMissingArguments) {
		t.Fatalf("Execute() error = %v, want errMissingArguments", err)
	}
	if !strings.Contains(out+errOut, "Usage:") {
		t.Fatalf("expected usage to be printed: %s%s", out, errOut)
	}

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, errOut, err = run(t, "", "--config", missing, "emit", "info", "hello")
	if err == nil || !strings.Contains(errOut, "run 'loghelper init' first") {
		t.Fatalf("Execute() error = %v, stderr = %s", err, errOut)
	}

	if _, _, err := run(t, "", "--config", path, "--log-level", "loud", "emit", "info", "x"); err == nil {
		t.Fatal("expected an invalid --log-level to fail")
	}
}

func TestPipe(t *testing.T) {
	path, _ := writeConfig(t)

	out, errOut, err := run(t, "first\nsecond\nno newline", "--config", path, "pipe", "--level", "error")
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr = %s", err, errOut)
	}
	want := "app ERROR first\napp ERROR second\napp ERROR no newline\n"
	if out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
}

func TestInitWithLogDir(t *testing.T) {
	for _, key := range []string{"NAME", "LEVEL", "DESTINATION_LEVEL", "FORMAT"} {
		t.Setenv(config.EnvPrefix+key, "")
	}
	dir := t.TempDir()
	t.Setenv(config.LogDirEnv, filepath.Join(dir, "logs"))
	path := filepath.Join(dir, "logging.yaml")

	out, errOut, err := run(t, "", "--config", path, "init")
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr = %s", err, errOut)
	}
	if !strings.Contains(out, "written to "+path) {
		t.Fatalf("stdout = %q", out)
	}

	out, _, err = run(t, "", "--config", path, "init")
	if err != nil || !strings.Contains(out, "already exists") {
		t.Fatalf("second init: out = %q, err = %v", out, err)
	}
}
