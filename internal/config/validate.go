package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVerification(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateChdman(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVerification() error {
	v := c.Verification
	if v.SizeToleranceBytes < 0 {
		return errors.New("verification.size_tolerance_bytes must be >= 0")
	}
	if v.NameSizeSimilarity <= 0 || v.NameSizeSimilarity > 1 {
		return errors.New("verification.name_size_similarity must be in (0, 1]")
	}
	if v.NameOnlySimilarity <= 0 || v.NameOnlySimilarity > 1 {
		return errors.New("verification.name_only_similarity must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 1 || c.Scan.Workers > maxScanWorkers {
		return fmt.Errorf("scan.workers must be between 1 and %d", maxScanWorkers)
	}
	return nil
}

func (c *Config) validateChdman() error {
	if c.Chdman.ConvertTimeout < 0 {
		return errors.New("chdman.convert_timeout must be >= 0")
	}
	if c.Chdman.VerifyTimeout < 0 {
		return errors.New("chdman.verify_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
