package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. A missing LLM API key is not
// a validation error: jobs fail with a configuration error at processing
// time so the queue still records what happened.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url must be an absolute URL, got %q", c.LLM.BaseURL)
	}
	if err := ensureRange("llm.timeout_seconds", c.LLM.TimeoutSeconds, minLLMTimeoutSeconds, maxLLMTimeoutSeconds); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if !strings.Contains(c.Translation.PromptTemplate, "{content}") {
		return errors.New("translation.prompt_template must contain the {content} placeholder")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if err := ensureRange("queue.batch_size", c.Queue.BatchSize, 1, maxBatchSize); err != nil {
		return err
	}
	if err := ensureRange("queue.item_delay_ms", c.Queue.ItemDelayMS, 0, maxItemDelayMS); err != nil {
		return err
	}
	if err := ensureRange("queue.lock_timeout_seconds", c.Queue.LockTimeoutSeconds, minLockTimeoutSeconds, maxLockTimeoutSeconds); err != nil {
		return err
	}
	return ensureRange("queue.schedule_interval_seconds", c.Queue.ScheduleIntervalSeconds, minScheduleIntervalSeconds, maxScheduleIntervalSeconds)
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensureRange(key string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, value)
	}
	return nil
}
