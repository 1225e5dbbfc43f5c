package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if cfg.Log.Level != "warn" {
		t.Errorf("expected default log level 'warn', got %s", cfg.Log.Level)
	}

	if cfg.Log.Development {
		t.Error("expected development logging to be off by default")
	}

	if !cfg.Output.Color {
		t.Error("expected color output to be on by default")
	}

	if cfg.Scene.Dir != "." {
		t.Errorf("expected default scene dir '.', got %s", cfg.Scene.Dir)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.Mkdir("scenes", 0755)

	// Write config file
	configContent := `
log:
  level: debug
  development: true
output:
  color: false
scene:
  dir: scenes
`
	os.WriteFile("powerups.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}

	if !cfg.Log.Development {
		t.Error("expected development logging")
	}

	if cfg.Output.Color {
		t.Error("expected color output to be disabled")
	}

	if got := cfg.ScenePath("level.yaml"); got != filepath.Join("scenes", "level.yaml") {
		t.Errorf("expected scene path under scenes/, got %s", got)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	t.Setenv("POWERUPS_LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("expected log level from environment, got %s", cfg.Log.Level)
	}
}

func TestLoadServeConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "powerups.yml")
	os.WriteFile(path, []byte("serve:\n  addr: 127.0.0.1:9000\n  token_ttl: 1h\n"), 0644)

	t.Setenv("POWERUPS_SERVE_SECRET", "s3cret")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Serve.Addr != "127.0.0.1:9000" {
		t.Errorf("expected serve addr from file, got %s", cfg.Serve.Addr)
	}
	if cfg.Serve.TokenTTL != time.Hour {
		t.Errorf("expected token ttl 1h, got %s", cfg.Serve.TokenTTL)
	}
	if cfg.Serve.Secret != "s3cret" {
		t.Errorf("expected secret from environment, got %q", cfg.Serve.Secret)
	}
}

func TestLoadServeConfig_PasswordHashNeedsSecret(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "powerups.yml")
	os.WriteFile(path, []byte("serve:\n  password_hash: $2a$10$abc\n"), 0644)

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for password hash without secret")
	}
	if !strings.Contains(err.Error(), "serve.secret") {
		t.Errorf("expected error to mention serve.secret, got %v", err)
	}
}

func TestLoadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "custom.yaml")
	os.WriteFile(path, []byte("log:\n  level: info\n"), 0644)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}

	if _, err := LoadFrom(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing config file, got nil")
	}
}

func TestValidateConfig(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	os.WriteFile(file, []byte(""), 0644)

	serve := ServeConfig{Addr: DefaultServeAddr}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Log: LogConfig{Level: "info"}, Scene: SceneConfig{Dir: tmpDir}, Serve: serve}, false},
		{"empty level", Config{Serve: serve}, false},
		{"bad level", Config{Log: LogConfig{Level: "verbose"}, Serve: serve}, true},
		{"missing scene dir", Config{Scene: SceneConfig{Dir: filepath.Join(tmpDir, "nope")}, Serve: serve}, true},
		{"scene dir is a file", Config{Scene: SceneConfig{Dir: file}, Serve: serve}, true},
		{"missing serve addr", Config{}, true},
		{"negative token ttl", Config{Serve: ServeConfig{Addr: DefaultServeAddr, TokenTTL: -time.Second}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScenePath(t *testing.T) {
	cfg := &Config{Scene: SceneConfig{Dir: "."}}
	if got := cfg.ScenePath("a.yaml"); got != "a.yaml" {
		t.Errorf("expected a.yaml, got %s", got)
	}

	abs := filepath.Join(string(filepath.Separator), "tmp", "a.yaml")
	cfg.Scene.Dir = "scenes"
	if got := cfg.ScenePath(abs); got != abs {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "powerups.yml")

	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Scene.Dir = dir

	if err := Write(path, cfg, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", loaded.Log.Level)
	}
	if loaded.Scene.Dir != dir {
		t.Errorf("expected scene dir %s, got %s", dir, loaded.Scene.Dir)
	}

	if err := Write(path, cfg, false); err == nil {
		t.Error("expected error writing over an existing file")
	}
	if err := Write(path, cfg, true); err != nil {
		t.Errorf("Write() with overwrite error = %v", err)
	}

	cfg.Log.Level = "loud"
	if err := Write(filepath.Join(dir, "other.yml"), cfg, false); err == nil {
		t.Error("expected error for an invalid log level")
	}
}
