package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateAnki(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if strings.TrimSpace(c.OpenAI.BaseURL) == "" {
		return errors.New("openai.base_url must be set")
	}
	if strings.TrimSpace(c.OpenAI.Model) == "" {
		return errors.New("openai.model must be set")
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	if c.OpenAI.ParallelRequests <= 0 {
		return errors.New("openai.parallel_requests must be positive")
	}
	return nil
}

func (c *Config) validateAnki() error {
	if strings.TrimSpace(c.Anki.URL) == "" {
		return errors.New("anki.url must be set")
	}
	if strings.TrimSpace(c.Anki.Deck) == "" {
		return errors.New("anki.deck must be set")
	}
	if strings.TrimSpace(c.Anki.BasicModel) == "" || strings.TrimSpace(c.Anki.ClozeModel) == "" {
		return errors.New("anki.basic_model and anki.cloze_model must be set")
	}
	if c.Anki.TimeoutSeconds <= 0 {
		return errors.New("anki.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
