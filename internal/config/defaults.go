package config

const (
	defaultConfigPath         = "~/.config/rommate/config.toml"
	defaultLogDir             = "~/.local/share/rommate/logs"
	defaultStateDir           = "~/.local/share/rommate"
	defaultCartridgeDBDir     = "~/.local/share/rommate/databases/no-intro"
	defaultDiscDBDir          = "~/.local/share/rommate/databases/redump"
	defaultSizeTolerance      = 512
	defaultNameSizeSimilarity = 0.80
	defaultNameOnlySimilarity = 0.70
	defaultScanWorkers        = 1
	maxScanWorkers            = 64
	defaultChdmanBinary       = "chdman"
	defaultChdmanVerifyTimout = 300
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Databases: Databases{
			CartridgeDir: defaultCartridgeDBDir,
			DiscDir:      defaultDiscDBDir,
		},
		Verification: Verification{
			SizeToleranceBytes: defaultSizeTolerance,
			NameSizeSimilarity: defaultNameSizeSimilarity,
			NameOnlySimilarity: defaultNameOnlySimilarity,
		},
		Scan: Scan{
			Workers:         defaultScanWorkers,
			IncludeArchives: true,
			VerifyCHD:       true,
		},
		Chdman: Chdman{
			Binary:        defaultChdmanBinary,
			VerifyTimeout: defaultChdmanVerifyTimout,
		},
		DigestCache: DigestCache{
			Path: defaultDigestCachePath(),
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
