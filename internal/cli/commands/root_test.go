package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "powerups" {
		t.Errorf("expected Use to be 'powerups', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	// Check subcommands are registered
	expectedCommands := []string{
		"version",
		"check",
		"derive",
		"describe",
		"init",
		"serve",
		"token",
		"lsp",
	}

	for _, expected := range expectedCommands {
		found := false
		for _, cmd := range cmd.Commands() {
			if cmd.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}

	for _, flag := range []string{"config", "log-level", "no-color"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag --%s", flag)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	// Set test version info
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"
	defer func() {
		Version = "dev"
		GitCommit = "unknown"
		BuildDate = "unknown"
		GoVersion = "unknown"
	}()

	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %s", cmd.Use)
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, []string{})

	out := buf.String()
	for _, expected := range []string{"1.0.0-test", "abc123", "2025-01-01", "go1.23"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected version output to contain %q, got %q", expected, out)
		}
	}
}

func TestVersionCommandReportsRuntimeGoVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCommand()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.Contains(buf.String(), "Go version: go") {
		t.Errorf("expected runtime Go version, got %q", buf.String())
	}
}
