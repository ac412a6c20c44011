package cmd

// Default flag values, centralized so tests can assert on them without
// duplicating magic numbers (mirrors the teacher's default_config.go).
const (
	defaultKeys         = 1000
	defaultKeyLength    = 16
	defaultValueLength  = 64
	defaultGets         = 0.8
	defaultPuts         = 0.2
	defaultAlpha        = 0.99
	defaultKeyType      = "unif"
	defaultIntervalType = "poiss"
	defaultIntervalUs   = 1000.0
	defaultNodes        = 4
	defaultProcs        = 1
	defaultDurationUs   = 1000000
	defaultApp          = "memcache"
	defaultConfigType   = "static"
	defaultLoadBound    = 1.5
	defaultReportMs     = 100
	defaultWriteMode    = "anynode"
	defaultEpochMs      = 0
	defaultLogLevel     = "info"
)
