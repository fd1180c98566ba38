package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"picsift/internal/config"
	"picsift/internal/logging"
	"picsift/internal/notifications"
	"picsift/internal/store"
)

type commandContext struct {
	configFlag *string
	quietFlag  *bool
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, quiet, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		quietFlag:  quiet,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) quiet() bool {
	return c.quietFlag != nil && *c.quietFlag
}

// ensureLogger builds the structured logger. Logs go to the daily file in the
// log directory; --verbose mirrors them to stderr.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		outputs := []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now()))}
		if c.verbose != nil && *c.verbose {
			outputs = append(outputs, "stderr")
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: outputs,
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir); removed > 0 {
			logger.Debug("old log files removed", logging.Int("count", removed))
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// notify publishes event when a topic is configured. Delivery failures are
// logged and never fail the command.
func (c *commandContext) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	cfg := c.configValue()
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return
	}
	if err := notifications.NewService(cfg).Publish(ctx, event, payload); err != nil {
		if logger, _ := c.ensureLogger(); logger != nil {
			logging.WarnWithContext(logger, "notification not delivered", "notify_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}
}

// statusWriter returns where human-readable status lines go, or io.Discard
// when --quiet is set.
func (c *commandContext) statusWriter(cmd *cobra.Command) io.Writer {
	if c.quiet() {
		return io.Discard
	}
	return cmd.ErrOrStderr()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
