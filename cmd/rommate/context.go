package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rommate/internal/catalog"
	"rommate/internal/checksum"
	"rommate/internal/config"
	"rommate/internal/deps"
	"rommate/internal/digestcache"
	"rommate/internal/logging"
	"rommate/internal/services/chdman"
	"rommate/internal/verify"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
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

// log returns the configured logger, falling back to a no-op logger when the
// log file cannot be opened so that commands still run.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// digestCache opens the persisted digest cache, or nil when disabled.
func (c *commandContext) digestCache() *digestcache.Cache {
	cfg, err := c.ensureConfig()
	if err != nil || !cfg.DigestCache.Enabled {
		return nil
	}
	return digestcache.NewCache(cfg.DigestCache.Path, c.log())
}

func (c *commandContext) chdmanClient() *chdman.Client {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	client, err := chdman.New(deps.ResolveChdmanPath(cfg.ChdmanBinary()), cfg.Chdman.ConvertTimeout, cfg.Chdman.VerifyTimeout)
	if err != nil {
		return nil
	}
	return client
}

// newEngine wires the reference database store, checksum engine and chdman
// into a verification engine.
func (c *commandContext) newEngine() (*verify.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()
	fsys := afero.NewOsFs()

	store := catalog.NewStore(fsys, cfg.Databases.CartridgeDir, cfg.Databases.DiscDir, logger)

	digestOpts := []checksum.Option{checksum.WithLogger(logger)}
	if cache := c.digestCache(); cache != nil {
		digestOpts = append(digestOpts, checksum.WithStore(cache))
	}

	opts := []verify.Option{
		verify.WithFS(fsys),
		verify.WithDigests(checksum.NewEngine(digestOpts...)),
		verify.WithPolicy(verify.PolicyFromConfig(cfg.Verification)),
		verify.WithArchives(cfg.Scan.IncludeArchives),
		verify.WithLogger(logger),
	}
	if cfg.Scan.VerifyCHD {
		if client := c.chdmanClient(); client != nil {
			opts = append(opts, verify.WithCHDVerifier(client))
		}
	}
	return verify.NewEngine(store, opts...), nil
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
