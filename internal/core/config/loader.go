package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeProjects(&cfg)
	normalizeTokens(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateTokens(&cfg); err != nil {
		return nil, err
	}
	if err := validateProperties(&cfg); err != nil {
		return nil, err
	}
	if err := validateRules(&cfg); err != nil {
		return nil, err
	}
	if err := validateExternals(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateProjects(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validatePerformance(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.ScanPaths) == 0 {
		cfg.ScanPaths = []string{"."}
	}

	if strings.TrimSpace(cfg.Paths.ConfigDir) == "" {
		cfg.Paths.ConfigDir = "data/config"
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.CacheDir) == "" {
		cfg.Paths.CacheDir = "data/cache"
	}
	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if strings.TrimSpace(cfg.ConfigFiles.ActiveFile) == "" {
		cfg.ConfigFiles.ActiveFile = "tokentrace.toml"
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "history.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
	if strings.TrimSpace(cfg.DB.ProjectMode) == "" {
		cfg.DB.ProjectMode = "multi"
	}
	if !cfg.DB.Enabled && cfg.Version <= 1 {
		// Keep v1 compatibility where the db block did not exist.
		cfg.DB.Enabled = true
	}

	if strings.TrimSpace(cfg.Projects.RegistryFile) == "" {
		cfg.Projects.RegistryFile = "projects.toml"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RescanPerSecond <= 0 {
		cfg.Watch.RescanPerSecond = 2
	}
	if cfg.Watch.RescanBurst <= 0 {
		cfg.Watch.RescanBurst = 1
	}

	if strings.TrimSpace(cfg.Output.Snapshot) == "" {
		cfg.Output.Snapshot = "propagation.json"
	}
	if strings.TrimSpace(cfg.Output.DirectoryTSV) == "" {
		cfg.Output.DirectoryTSV = "directories.tsv"
	}
	if strings.TrimSpace(cfg.Output.UnresolvedTSV) == "" {
		cfg.Output.UnresolvedTSV = "unresolved.tsv"
	}
	if strings.TrimSpace(cfg.Output.Paths.ReportsDir) == "" {
		cfg.Output.Paths.ReportsDir = "docs/reports"
	}
	if strings.TrimSpace(cfg.Output.Report.Verbosity) == "" {
		cfg.Output.Report.Verbosity = "standard"
	}

	if cfg.Performance.Workers < 0 {
		cfg.Performance.Workers = 0
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9090
	}

	if cfg.ExternalCache.Size <= 0 {
		cfg.ExternalCache.Size = 32
	}
}

func normalizeProjects(cfg *Config) {
	cfg.Projects.Active = strings.TrimSpace(cfg.Projects.Active)
	cfg.Projects.RegistryFile = strings.TrimSpace(cfg.Projects.RegistryFile)
	for i := range cfg.Projects.Entries {
		entry := &cfg.Projects.Entries[i]
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Root = strings.TrimSpace(entry.Root)
		entry.DBNamespace = normalizeProjectNamespace(entry.DBNamespace, entry.Name)
		entry.ConfigFile = strings.TrimSpace(entry.ConfigFile)
	}
}

func normalizeProjectNamespace(raw, fallback string) string {
	namespace := strings.TrimSpace(raw)
	if namespace == "" {
		namespace = strings.TrimSpace(fallback)
	}
	return namespace
}

func normalizeTokens(cfg *Config) {
	keys := make([]string, 0, len(cfg.Tokens.Keys))
	seen := make(map[string]bool, len(cfg.Tokens.Keys))
	for _, key := range cfg.Tokens.Keys {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	cfg.Tokens.Keys = keys

	for i := range cfg.Properties.Tracked {
		cfg.Properties.Tracked[i] = strings.TrimSpace(cfg.Properties.Tracked[i])
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 2 {
		return fmt.Errorf("unsupported config version %d; supported versions are 1 and 2", cfg.Version)
	}
	return nil
}

func validateTokens(cfg *Config) error {
	for i, key := range cfg.Tokens.Keys {
		if !strings.HasPrefix(key, "--") {
			return fmt.Errorf("tokens.keys[%d] must start with --, got %q", i, key)
		}
	}
	for i, file := range cfg.Tokens.SourceFiles {
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("tokens.source_files[%d] must not be empty", i)
		}
	}
	return nil
}

func validateProperties(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Properties.Tracked))
	for i, prop := range cfg.Properties.Tracked {
		if prop == "" {
			return fmt.Errorf("properties.tracked[%d] must not be empty", i)
		}
		if seen[prop] {
			return fmt.Errorf("duplicate tracked property %q", prop)
		}
		seen[prop] = true
	}
	return nil
}

func validateRules(cfg *Config) error {
	for i, rule := range cfg.Rules.ExcludedValues {
		ref := fmt.Sprintf("rules.excluded_values[%d]", i)
		if strings.TrimSpace(rule.Property) == "" {
			return fmt.Errorf("%s.property must not be empty", ref)
		}
		if len(rule.Values) == 0 && len(rule.Patterns) == 0 {
			return fmt.Errorf("%s must define at least one value or pattern", ref)
		}
		for j, value := range rule.Values {
			if strings.TrimSpace(strings.TrimPrefix(value, "!")) == "" {
				return fmt.Errorf("%s.values[%d] must not be empty", ref, j)
			}
		}
		for j, pattern := range rule.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("%s.patterns[%d] is not a valid expression: %w", ref, j, err)
			}
		}
	}
	return nil
}

func validateExternals(cfg *Config) error {
	for pattern, files := range cfg.Externals.Mapping {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("externals.mapping keys must not be empty")
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("externals.mapping pattern %q is not a valid glob: %w", pattern, err)
		}
		if len(files) == 0 {
			return fmt.Errorf("externals.mapping[%q] must list at least one stylesheet", pattern)
		}
		for i, file := range files {
			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("externals.mapping[%q][%d] must not be empty", pattern, i)
			}
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.RescanPerSecond <= 0 {
		return fmt.Errorf("watch.rescan_per_second must be positive")
	}
	if cfg.Watch.RescanBurst < 1 {
		return fmt.Errorf("watch.rescan_burst must be >= 1")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.DB.ProjectMode))
	if mode != "single" && mode != "multi" {
		return fmt.Errorf("db.project_mode must be one of: single, multi")
	}
	return nil
}

func validateProjects(cfg *Config) error {
	entries := cfg.Projects.Entries
	if len(entries) == 0 {
		if cfg.Projects.Active != "" {
			return fmt.Errorf("projects.active is set to %q but projects.entries is empty", cfg.Projects.Active)
		}
		return nil
	}

	seenNames := make(map[string]bool, len(entries))
	for i, entry := range entries {
		ref := fmt.Sprintf("projects.entries[%d]", i)
		if entry.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if entry.Root == "" {
			return fmt.Errorf("%s.root must not be empty", ref)
		}
		if seenNames[entry.Name] {
			return fmt.Errorf("duplicate project name %q", entry.Name)
		}
		seenNames[entry.Name] = true
	}

	if cfg.Projects.Active != "" && !seenNames[cfg.Projects.Active] {
		return fmt.Errorf("projects.active references unknown project %q", cfg.Projects.Active)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.Paths.ReportsDir) == "" {
		return fmt.Errorf("output.paths.reports_dir must not be empty")
	}

	verbosity := strings.ToLower(strings.TrimSpace(cfg.Output.Report.Verbosity))
	switch verbosity {
	case "minimal", "standard", "detailed":
	default:
		return fmt.Errorf("output.report.verbosity must be one of: minimal, standard, detailed")
	}

	seen := make(map[string]bool, len(cfg.Output.UpdateMarkdown))
	for i, injection := range cfg.Output.UpdateMarkdown {
		ref := fmt.Sprintf("output.update_markdown[%d]", i)
		file := strings.TrimSpace(injection.File)
		if file == "" {
			return fmt.Errorf("%s.file must not be empty", ref)
		}
		marker := strings.TrimSpace(injection.Marker)
		if marker == "" {
			return fmt.Errorf("%s.marker must not be empty", ref)
		}
		format := strings.ToLower(strings.TrimSpace(injection.Format))
		if format != "table" && format != "summary" {
			return fmt.Errorf("%s.format must be one of: table, summary", ref)
		}
		key := file + "|" + marker + "|" + format
		if seen[key] {
			return fmt.Errorf("duplicate markdown injection target: file=%q marker=%q format=%q", file, marker, format)
		}
		seen[key] = true
	}
	return nil
}

func validatePerformance(cfg *Config) error {
	if cfg.Performance.Workers < 0 {
		return fmt.Errorf("performance.workers must not be negative")
	}
	if cfg.Performance.MaxHeapMB < 0 {
		return fmt.Errorf("performance.max_heap_mb must not be negative")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	return nil
}
