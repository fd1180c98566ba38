package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateCopy(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be zero or positive")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.Extensions) == 0 {
		return errors.New("scan.extensions must list at least one extension")
	}
	switch c.Scan.DetectionMode {
	case ModeMetadata, ModeChecksum:
	default:
		return fmt.Errorf("scan.detection_mode must be %q or %q, got %q", ModeMetadata, ModeChecksum, c.Scan.DetectionMode)
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must be zero or positive")
	}
	return nil
}

func (c *Config) validateCopy() error {
	if !strings.Contains(c.Copy.Pattern, "{") {
		return fmt.Errorf("copy.pattern %q must contain at least one date token", c.Copy.Pattern)
	}
	if c.Copy.SpaceMarginMiB < 0 {
		return errors.New("copy.space_margin_mib must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
