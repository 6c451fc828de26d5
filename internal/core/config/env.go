package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: TOKENTRACE_[SECTION]_[KEY]
// (e.g., TOKENTRACE_OBSERVABILITY_PORT).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "TOKENTRACE_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.ConfigDir, "TOKENTRACE_PATHS_CONFIG_DIR")
	setEnvString(&cfg.Paths.StateDir, "TOKENTRACE_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.CacheDir, "TOKENTRACE_PATHS_CACHE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "TOKENTRACE_PATHS_DATABASE_DIR")

	// Database
	setEnvBool(&cfg.DB.Enabled, "TOKENTRACE_DB_ENABLED")
	setEnvString(&cfg.DB.Driver, "TOKENTRACE_DB_DRIVER")
	setEnvString(&cfg.DB.Path, "TOKENTRACE_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "TOKENTRACE_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "TOKENTRACE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RescanPerSecond, "TOKENTRACE_WATCH_RESCAN_PER_SECOND")
	setEnvInt(&cfg.Watch.RescanBurst, "TOKENTRACE_WATCH_RESCAN_BURST")

	// Output
	setEnvString(&cfg.Output.Report.Verbosity, "TOKENTRACE_OUTPUT_REPORT_VERBOSITY")

	// Performance
	setEnvInt(&cfg.Performance.Workers, "TOKENTRACE_PERFORMANCE_WORKERS")
	setEnvInt(&cfg.Performance.MaxHeapMB, "TOKENTRACE_PERFORMANCE_MAX_HEAP_MB")

	// External cache
	setEnvInt(&cfg.ExternalCache.Size, "TOKENTRACE_EXTERNAL_CACHE_SIZE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "TOKENTRACE_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "TOKENTRACE_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "TOKENTRACE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "TOKENTRACE_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "TOKENTRACE_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
