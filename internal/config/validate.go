package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateDevices(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if err := ensurePositiveMap(map[string]int{
		"backend.request_timeout_seconds":   c.Backend.RequestTimeoutSeconds,
		"backend.poll_interval_ms":          c.Backend.PollIntervalMS,
		"backend.max_poll_failures":         c.Backend.MaxPollFailures,
		"backend.max_poll_duration_seconds": c.Backend.MaxPollDurationSeconds,
	}); err != nil {
		return err
	}
	switch c.Backend.UploadMode {
	case UploadModeMultipart, UploadModePath, UploadModeObjectStore:
	default:
		return fmt.Errorf("backend.upload_mode must be %q, %q or %q", UploadModeMultipart, UploadModePath, UploadModeObjectStore)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Backend.UploadMode != UploadModeObjectStore {
		return nil
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set when backend.upload_mode is object-store")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when backend.upload_mode is object-store")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return errors.New("storage.access_key and storage.secret_key must be set when backend.upload_mode is object-store (or set STEMDECK_S3_ACCESS_KEY/STEMDECK_S3_SECRET_KEY)")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	switch c.Player.StemSet {
	case StemSetTwo, StemSetFour:
	default:
		return fmt.Errorf("player.stem_set must be %q or %q, got %q", StemSetTwo, StemSetFour, c.Player.StemSet)
	}
	if c.Player.SampleRate < 8000 || c.Player.SampleRate > 192000 {
		return errors.New("player.sample_rate must be between 8000 and 192000")
	}
	if err := ensurePositiveMap(map[string]int{
		"player.block_ms":            c.Player.BlockMS,
		"player.waveform_resolution": c.Player.WaveformResolution,
	}); err != nil {
		return err
	}
	if c.Player.RampMS > 1000 {
		return errors.New("player.ramp_ms must be at most 1000")
	}
	return nil
}

func (c *Config) validateDevices() error {
	seen := make(map[string]struct{}, len(c.Devices))
	for i, device := range c.Devices {
		if device.ID == "" {
			return fmt.Errorf("devices[%d].id must be set", i)
		}
		if _, dup := seen[device.ID]; dup {
			return fmt.Errorf("devices[%d].id %q is duplicated", i, device.ID)
		}
		seen[device.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", strings.TrimSpace(c.Logging.Level))
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
