package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/powerups/internal/logging"
)

// Config represents the powerups CLI configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Output OutputConfig `mapstructure:"output"`
	Scene  SceneConfig  `mapstructure:"scene"`
	Serve  ServeConfig  `mapstructure:"serve"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// OutputConfig represents terminal output configuration
type OutputConfig struct {
	Color bool `mapstructure:"color"`
}

// SceneConfig represents scene file lookup configuration
type SceneConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServeConfig represents the scene inspector server configuration
type ServeConfig struct {
	Addr     string        `mapstructure:"addr"`
	Secret   string        `mapstructure:"secret"`    // Enables token auth when set
	TokenTTL time.Duration `mapstructure:"token_ttl"` // Lifetime of issued tokens

	// PasswordHash is a bcrypt hash enabling POST /token logins
	PasswordHash string `mapstructure:"password_hash"`
}

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. POWERUPS_LOG_LEVEL for log.level.
const EnvPrefix = "POWERUPS"

const (
	DefaultServeAddr = "127.0.0.1:7777"
	DefaultTokenTTL  = 24 * time.Hour
)

// Load loads the configuration from powerups.yml or powerups.yaml in the
// working directory
func Load() (*Config, error) {
	return load(func(v *viper.Viper) {
		v.SetConfigName("powerups")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	})
}

// LoadFrom loads the configuration from an explicit file
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return load(func(v *viper.Viper) {
		v.SetConfigFile(path)
	})
}

func load(locate func(v *viper.Viper)) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("output.color", true)
	v.SetDefault("scene.dir", ".")
	v.SetDefault("serve.addr", DefaultServeAddr)
	v.SetDefault("serve.secret", "")
	v.SetDefault("serve.token_ttl", DefaultTokenTTL)
	v.SetDefault("serve.password_hash", "")

	locate(v)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ScenePath resolves a scene file name against scene.dir. Absolute paths are
// returned unchanged.
func (c *Config) ScenePath(name string) string {
	if filepath.IsAbs(name) || c.Scene.Dir == "" || c.Scene.Dir == "." {
		return name
	}
	return filepath.Join(c.Scene.Dir, name)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if err := validateLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Serve.Addr == "" {
		return fmt.Errorf("serve.addr is required")
	}
	if cfg.Serve.TokenTTL < 0 {
		return fmt.Errorf("serve.token_ttl must not be negative, got: %s", cfg.Serve.TokenTTL)
	}
	if cfg.Serve.PasswordHash != "" && cfg.Serve.Secret == "" {
		return fmt.Errorf("serve.password_hash requires serve.secret")
	}
	if cfg.Scene.Dir != "" {
		info, err := os.Stat(cfg.Scene.Dir)
		if err != nil {
			return fmt.Errorf("scene.dir must exist, got: %s", cfg.Scene.Dir)
		}
		if !info.IsDir() {
			return fmt.Errorf("scene.dir must be a directory, got: %s", cfg.Scene.Dir)
		}
	}
	return nil
}

func validateLevel(level string) error {
	if _, err := logging.ParseLevel(level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Write saves cfg to path in the format implied by its extension. An existing
// file is only replaced when overwrite is set.
func Write(path string, cfg *Config, overwrite bool) error {
	if err := validateLevel(cfg.Log.Level); err != nil {
		return err
	}

	v := viper.New()
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.development", cfg.Log.Development)
	v.Set("output.color", cfg.Output.Color)
	v.Set("scene.dir", cfg.Scene.Dir)
	v.Set("serve.addr", cfg.Serve.Addr)

	write := v.SafeWriteConfigAs
	if overwrite {
		write = v.WriteConfigAs
	}
	if err := write(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "warn"},
		Output: OutputConfig{Color: true},
		Scene:  SceneConfig{Dir: "."},
		Serve:  ServeConfig{Addr: DefaultServeAddr, TokenTTL: DefaultTokenTTL},
	}
}
