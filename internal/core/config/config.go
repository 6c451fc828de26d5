package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	ScanPaths     []string      `toml:"scan_paths"`
	Paths         Paths         `toml:"paths"`
	ConfigFiles   ConfigFiles   `toml:"config"`
	Tokens        Tokens        `toml:"tokens"`
	Properties    Properties    `toml:"properties"`
	Rules         Rules         `toml:"rules"`
	Externals     Externals     `toml:"externals"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	DB            Database      `toml:"db"`
	Projects      Projects      `toml:"projects"`
	Output        Output        `toml:"output"`
	Performance   Performance   `toml:"performance"`
	Observability Observability `toml:"observability"`
	ExternalCache ExternalCache `toml:"external_cache"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	ConfigDir   string `toml:"config_dir"`
	StateDir    string `toml:"state_dir"`
	CacheDir    string `toml:"cache_dir"`
	DatabaseDir string `toml:"database_dir"`
}

type ConfigFiles struct {
	ActiveFile string   `toml:"active_file"`
	Includes   []string `toml:"includes"`
}

// Tokens defines the design-token table: literal keys matched by substring,
// plus stylesheet files whose root-scoped custom properties are harvested as
// additional keys.
type Tokens struct {
	Keys        []string `toml:"keys"`
	SourceFiles []string `toml:"source_files"`
}

// Properties selects which declaration properties count toward propagation
// scoring. Membership is exact.
type Properties struct {
	Tracked []string `toml:"tracked"`
}

type Rules struct {
	ExcludedValues []ExcludedValueRule `toml:"excluded_values"`
}

// ExcludedValueRule removes matching values from a property's scoring
// denominator. Values compare case-insensitively, a leading "!" negates, and
// patterns are regular expressions.
type ExcludedValueRule struct {
	Property string   `toml:"property"`
	Values   []string `toml:"values"`
	Patterns []string `toml:"patterns"`
}

// Externals maps file glob patterns to the stylesheets whose bindings are in
// scope for matching files.
type Externals struct {
	Mapping map[string][]string `toml:"mapping"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce        time.Duration `toml:"debounce"`
	RescanPerSecond float64       `toml:"rescan_per_second"`
	RescanBurst     int           `toml:"rescan_burst"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	ProjectMode string        `toml:"project_mode"`
}

type Projects struct {
	Active       string         `toml:"active"`
	RegistryFile string         `toml:"registry_file"`
	Entries      []ProjectEntry `toml:"entries"`
}

type ProjectEntry struct {
	Name        string `toml:"name"`
	Root        string `toml:"root"`
	DBNamespace string `toml:"db_namespace"`
	ConfigFile  string `toml:"config_file"`
}

type Output struct {
	Snapshot       string              `toml:"snapshot"`
	DirectoryTSV   string              `toml:"directory_tsv"`
	UnresolvedTSV  string              `toml:"unresolved_tsv"`
	Markdown       string              `toml:"markdown"`
	TrendTSV       string              `toml:"trend_tsv"`
	TrendJSON      string              `toml:"trend_json"`
	UpdateMarkdown []MarkdownInjection `toml:"update_markdown"`
	Paths          OutputPaths         `toml:"paths"`
	Report         ReportOptions       `toml:"report"`
}

type MarkdownInjection struct {
	File   string `toml:"file"`
	Marker string `toml:"marker"`
	Format string `toml:"format"`
}

type OutputPaths struct {
	Root       string `toml:"root"`
	ReportsDir string `toml:"reports_dir"`
}

type ReportOptions struct {
	Verbosity           string `toml:"verbosity"`
	TableOfContents     *bool  `toml:"table_of_contents"`
	CollapsibleSections *bool  `toml:"collapsible_sections"`
}

type Performance struct {
	Workers   int `toml:"workers"`
	MaxHeapMB int `toml:"max_heap_mb"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// ExternalCache sizes the parsed-stylesheet cache used when the same
// external file backs many mapping patterns.
type ExternalCache struct {
	Size int `toml:"size"`
}

// TableOfContentsEnabled reports the effective TOC setting, defaulting on.
func (r ReportOptions) TableOfContentsEnabled() bool {
	if r.TableOfContents == nil {
		return true
	}
	return *r.TableOfContents
}

// CollapsibleSectionsEnabled reports the effective collapsible-sections
// setting, defaulting on.
func (r ReportOptions) CollapsibleSectionsEnabled() bool {
	if r.CollapsibleSections == nil {
		return true
	}
	return *r.CollapsibleSections
}
