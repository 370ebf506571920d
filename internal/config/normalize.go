package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatabases(); err != nil {
		return err
	}
	if err := c.normalizeDigestCache(); err != nil {
		return err
	}
	c.normalizeChdman()
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabases() error {
	var err error
	if strings.TrimSpace(c.Databases.CartridgeDir) == "" {
		c.Databases.CartridgeDir = defaultCartridgeDBDir
	}
	if c.Databases.CartridgeDir, err = expandPath(c.Databases.CartridgeDir); err != nil {
		return fmt.Errorf("databases.cartridge_dir: %w", err)
	}
	if strings.TrimSpace(c.Databases.DiscDir) == "" {
		c.Databases.DiscDir = defaultDiscDBDir
	}
	if c.Databases.DiscDir, err = expandPath(c.Databases.DiscDir); err != nil {
		return fmt.Errorf("databases.disc_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDigestCache() error {
	var err error
	if strings.TrimSpace(c.DigestCache.Path) == "" {
		c.DigestCache.Path = defaultDigestCachePath()
	}
	if c.DigestCache.Path, err = expandPath(c.DigestCache.Path); err != nil {
		return fmt.Errorf("digest_cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeChdman() {
	c.Chdman.Binary = strings.TrimSpace(c.Chdman.Binary)
	if value, ok := os.LookupEnv("ROMMATE_CHDMAN"); ok && strings.TrimSpace(value) != "" {
		c.Chdman.Binary = strings.TrimSpace(value)
	}
	if c.Chdman.Binary == "" {
		c.Chdman.Binary = defaultChdmanBinary
	}
}

func (c *Config) normalizeScan() {
	if c.Scan.Workers == 0 {
		c.Scan.Workers = defaultScanWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
