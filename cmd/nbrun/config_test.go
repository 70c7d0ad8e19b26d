// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nbrun/nbrun/internal/config"
	"github.com/nbrun/nbrun/internal/testutil"
)

func runConfigCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(append([]string{"config"}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestConfigInitShowDump(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nbrun", "config.cue")

	out, err := runConfigCommand(t, "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Created default configuration at "+path) {
		t.Errorf("init output = %q", out)
	}

	out, err = runConfigCommand(t, "init", "--config", path)
	if err != nil {
		t.Fatalf("second config init: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("second init output = %q", out)
	}

	out, err = runConfigCommand(t, "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{path, "python3", "600s", "POP_SIZE", "pareto_vals.csv", config.DefaultImage} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = runConfigCommand(t, "dump", "--config", path)
	if err != nil {
		t.Fatalf("config dump: %v", err)
	}
	if out != testutil.MustReadFile(t, path) {
		t.Errorf("dump of the default file should reproduce it:\n%s", out)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()
	path := testutil.MustWriteFile(t, t.TempDir(), "custom.cue", "timeout: 60\n")

	out, err := runConfigCommand(t, "path", "--config", path)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, "Config file: "+path) {
		t.Errorf("path output = %q", out)
	}

	if _, err := runConfigCommand(t, "path", "--config", filepath.Join(t.TempDir(), "none.cue")); err == nil {
		t.Error("a missing explicit config file should be an error")
	}
}

func TestConfigShow_InvalidFile(t *testing.T) {
	t.Parallel()
	path := testutil.MustWriteFile(t, t.TempDir(), "bad.cue", "timeout: -1\n")

	if _, err := runConfigCommand(t, "show", "--config", path); err == nil {
		t.Error("config show should fail for a file violating the schema")
	}
}
