package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizePlayer()
	c.normalizeOutput()
	c.normalizeDevices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if value, ok := os.LookupEnv("STEMDECK_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = value
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL
	}
	c.Backend.UploadMode = strings.ToLower(strings.TrimSpace(c.Backend.UploadMode))
	if c.Backend.UploadMode == "" {
		c.Backend.UploadMode = defaultUploadMode
	}
}

func (c *Config) normalizeAuth() error {
	var err error
	if strings.TrimSpace(c.Auth.TokenFile) == "" {
		c.Auth.TokenFile = defaultTokenFile
	}
	if c.Auth.TokenFile, err = expandPath(c.Auth.TokenFile); err != nil {
		return fmt.Errorf("auth.token_file: %w", err)
	}
	if value, ok := os.LookupEnv("STEMDECK_TOKEN"); ok {
		c.Auth.Token = strings.TrimSpace(value)
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("STEMDECK_S3_ACCESS_KEY"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("STEMDECK_S3_SECRET_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Storage.InputPrefix = strings.TrimLeft(strings.TrimSpace(c.Storage.InputPrefix), "/")
	if c.Storage.InputPrefix != "" && !strings.HasSuffix(c.Storage.InputPrefix, "/") {
		c.Storage.InputPrefix += "/"
	}
}

func (c *Config) normalizePlayer() {
	c.Player.StemSet = strings.ToLower(strings.TrimSpace(c.Player.StemSet))
	if c.Player.StemSet == "" {
		c.Player.StemSet = defaultStemSet
	}
	if c.Player.SampleRate == 0 {
		c.Player.SampleRate = defaultSampleRate
	}
	if c.Player.BlockMS == 0 {
		c.Player.BlockMS = defaultBlockMS
	}
	if c.Player.WaveformResolution == 0 {
		c.Player.WaveformResolution = defaultWaveformResolution
	}
	if c.Player.LyricGraceMS < 0 {
		c.Player.LyricGraceMS = 0
	}
	if c.Player.RampMS < 0 {
		c.Player.RampMS = 0
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Command = strings.TrimSpace(c.Output.Command)
	if len(c.Output.Args) > 0 || c.Output.Command == "" {
		return
	}
	if preset, ok := outputPresets[filepath.Base(c.Output.Command)]; ok {
		c.Output.Args = append([]string(nil), preset...)
	}
}

func (c *Config) normalizeDevices() {
	if len(c.Devices) == 0 {
		c.Devices = append([]Device(nil), defaultDevices...)
		return
	}
	for i := range c.Devices {
		c.Devices[i].ID = strings.TrimSpace(c.Devices[i].ID)
		c.Devices[i].Name = strings.TrimSpace(c.Devices[i].Name)
		if c.Devices[i].Name == "" {
			c.Devices[i].Name = c.Devices[i].ID
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
