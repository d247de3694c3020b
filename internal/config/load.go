package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

var ErrConfigNotFound = errors.New("config not found")

const envPrefix = "livecc"

// GetConfigDir returns $XDG_CONFIG_HOME/livecc, creating it if needed.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "livecc")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the user config file, then applies .env files and LIVECC_*
// environment overrides.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s (run livecc configure)", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Debug().Str("path", configPath).Msg("config: loading configuration")

	// unset keys keep their defaults
	config := DefaultConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Msg("config: unknown key ignored")
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	loadDotEnv(filepath.Dir(configPath))
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyThreadsDefault()

	log.Debug().Msg("config: configuration loaded successfully")
	return config, nil
}

// LoadOrDefault behaves like Load but falls back to defaults (plus environment
// overrides) when no config file exists yet.
func LoadOrDefault() (*Config, error) {
	config, err := Load()
	if errors.Is(err, ErrConfigNotFound) {
		log.Info().Msg("config: no config file found, using defaults")
		config = DefaultConfig()
		if dir, derr := GetConfigDir(); derr == nil {
			loadDotEnv(dir)
		}
		if err := config.applyEnv(); err != nil {
			return nil, err
		}
		config.applyThreadsDefault()
		return config, nil
	}
	return config, err
}

// Save writes config to the user config path.
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(config, configPath)
}

func SaveFile(config *Config, configPath string) error {
	var buf bytes.Buffer
	buf.WriteString("# livecc configuration\n# Durations use Go syntax (\"200ms\", \"3s\", \"1m\").\n\n")
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// may hold API keys
	if err := os.WriteFile(configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	log.Info().Str("path", configPath).Msg("config: saved")
	return nil
}

// loadDotEnv loads .env from the working directory and from dir. Variables that
// are already set win.
func loadDotEnv(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config: failed to load env file")
		}
	}
}

// envOverrides lists the LIVECC_* variables. Unset variables leave the file
// value alone.
type envOverrides struct {
	CaptureBackend *string `envconfig:"CAPTURE_BACKEND"`
	Device         *string `envconfig:"DEVICE"`
	Backend        *string `envconfig:"BACKEND"`
	Provider       *string `envconfig:"PROVIDER"`
	Endpoint       *string `envconfig:"ENDPOINT"`
	APIKey         *string `envconfig:"API_KEY"`
	Model          *string `envconfig:"MODEL"`
	Language       *string `envconfig:"LANGUAGE"`
	ModelPath      *string `envconfig:"MODEL_PATH"`
	MaxConcurrent  *int    `envconfig:"MAX_CONCURRENT"`
	Ordered        *bool   `envconfig:"ORDERED"`
	Translate      *string `envconfig:"TRANSLATE_TO"`
	ServerListen   *string `envconfig:"LISTEN"`
	LogLevel       *string `envconfig:"LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}

	setString(&c.Capture.Backend, env.CaptureBackend)
	setString(&c.Capture.Device, env.Device)
	setString(&c.Transcription.Backend, env.Backend)
	setString(&c.Transcription.Provider, env.Provider)
	setString(&c.Transcription.Endpoint, env.Endpoint)
	setString(&c.Transcription.APIKey, env.APIKey)
	setString(&c.Transcription.Model, env.Model)
	setString(&c.Transcription.Language, env.Language)
	setString(&c.Transcription.ModelPath, env.ModelPath)
	setString(&c.Server.Listen, env.ServerListen)
	setString(&c.Log.Level, env.LogLevel)
	if env.MaxConcurrent != nil {
		c.Transcription.MaxConcurrent = *env.MaxConcurrent
	}
	if env.Ordered != nil {
		c.Output.Ordered = *env.Ordered
	}
	if env.Translate != nil {
		target := strings.TrimSpace(*env.Translate)
		c.Translation.Enabled = target != ""
		if target != "" {
			c.Translation.TargetLanguage = target
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// applyThreadsDefault sets default threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}
}
