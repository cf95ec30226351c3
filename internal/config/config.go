package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Backend contains settings for the separation service.
type Backend struct {
	BaseURL                string `toml:"base_url"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	PollIntervalMS         int    `toml:"poll_interval_ms"`
	MaxPollFailures        int    `toml:"max_poll_failures"`
	MaxPollDurationSeconds int    `toml:"max_poll_duration_seconds"`
	UploadMode             string `toml:"upload_mode"`
}

// Auth contains bearer token settings.
type Auth struct {
	TokenFile string `toml:"token_file"`
	Token     string `toml:"-"`
}

// Storage contains object-store settings used by the object-store upload
// mode and s3:// stem URLs.
type Storage struct {
	Endpoint    string `toml:"endpoint"`
	Bucket      string `toml:"bucket"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	UseSSL      bool   `toml:"use_ssl"`
	InputPrefix string `toml:"input_prefix"`
}

// Player contains playback and visualization settings.
type Player struct {
	StemSet            string `toml:"stem_set"`
	SampleRate         int    `toml:"sample_rate"`
	BlockMS            int    `toml:"block_ms"`
	RampMS             int    `toml:"ramp_ms"`
	WaveformResolution int    `toml:"waveform_resolution"`
	LyricGraceMS       int    `toml:"lyric_grace_ms"`
}

// Output selects the external player audio is piped into.
type Output struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Device is one logical routing target.
type Device struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for stemdeck.
//
// Configuration sections by subsystem:
//   - Paths: state, log and export directories
//   - Backend: separation service endpoint, polling and upload mode
//   - Auth: bearer token file (STEMDECK_TOKEN overrides)
//   - Storage: object store for large uploads and s3:// stems
//   - Player: stem set, sample rate and visualization knobs
//   - Output: external PCM player command
//   - Devices: logical routing targets
//   - Logging: log format, level and rotation
type Config struct {
	Paths   Paths    `toml:"paths"`
	Backend Backend  `toml:"backend"`
	Auth    Auth     `toml:"auth"`
	Storage Storage  `toml:"storage"`
	Player  Player   `toml:"player"`
	Output  Output   `toml:"output"`
	Devices []Device `toml:"devices"`
	Logging Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is loaded first so its values act as environment
// fallbacks. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stemdeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the file guarding the single active output graph.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "player.lock")
}

// LogFilePath is the rotating log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "stemdeck.log")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the job status polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalMS) * time.Millisecond
}

// MaxPollDuration bounds how long a single job may be polled.
func (c *Config) MaxPollDuration() time.Duration {
	return time.Duration(c.Backend.MaxPollDurationSeconds) * time.Second
}

// BlockDuration is the audio render block length.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(c.Player.BlockMS) * time.Millisecond
}

// RampDuration is the gain ramp window.
func (c *Config) RampDuration() time.Duration {
	return time.Duration(c.Player.RampMS) * time.Millisecond
}

// LyricGrace is how long a manual lyric scroll suppresses auto-follow.
func (c *Config) LyricGrace() time.Duration {
	return time.Duration(c.Player.LyricGraceMS) * time.Millisecond
}

// StorageConfigured reports whether an object store is usable.
func (c *Config) StorageConfigured() bool {
	return c.Storage.Endpoint != "" && c.Storage.Bucket != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML. Secrets are masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	if masked.Storage.SecretKey != "" {
		masked.Storage.SecretKey = "********"
	}
	data, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
