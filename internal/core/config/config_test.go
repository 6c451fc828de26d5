package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokentrace.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
scan_paths = ["src/styles", "src/components"]

[tokens]
keys = ["--color-", "--spacing-"]
source_files = ["tokens/base.css"]

[properties]
tracked = ["color", "background-color", "margin"]

[[rules.excluded_values]]
property = "color"
values = ["transparent", "!currentColor"]
patterns = ["^#(?:[0-9a-fA-F]{3}){1,2}$"]

[[rules.excluded_values]]
property = "*"
values = ["inherit"]

[externals.mapping]
"src/components/**" = ["tokens/base.css", "tokens/semantic.css"]

[exclude]
dirs = ["node_modules", "dist"]
files = ["*.min.css"]

[watch]
debounce = "1s"
rescan_per_second = 4.0
rescan_burst = 2

[output]
snapshot = "propagation.json"
directory_tsv = "dirs.tsv"

[[output.update_markdown]]
file = "README.md"
marker = "propagation-table"
format = "table"

[performance]
workers = 4

[observability]
enabled = true
port = 9191
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.ScanPaths) != 2 || cfg.ScanPaths[0] != "src/styles" {
		t.Errorf("unexpected scan paths: %v", cfg.ScanPaths)
	}
	if len(cfg.Tokens.Keys) != 2 || cfg.Tokens.Keys[0] != "--color-" {
		t.Errorf("unexpected token keys: %v", cfg.Tokens.Keys)
	}
	if len(cfg.Tokens.SourceFiles) != 1 {
		t.Errorf("unexpected token source files: %v", cfg.Tokens.SourceFiles)
	}
	if len(cfg.Properties.Tracked) != 3 {
		t.Errorf("unexpected tracked properties: %v", cfg.Properties.Tracked)
	}
	if len(cfg.Rules.ExcludedValues) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules.ExcludedValues))
	}
	if cfg.Rules.ExcludedValues[0].Values[1] != "!currentColor" {
		t.Errorf("negated value lost: %v", cfg.Rules.ExcludedValues[0].Values)
	}
	if files := cfg.Externals.Mapping["src/components/**"]; len(files) != 2 {
		t.Errorf("unexpected externals mapping: %v", cfg.Externals.Mapping)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.RescanPerSecond != 4.0 || cfg.Watch.RescanBurst != 2 {
		t.Errorf("unexpected rescan limits: %v / %d", cfg.Watch.RescanPerSecond, cfg.Watch.RescanBurst)
	}
	if cfg.Output.DirectoryTSV != "dirs.tsv" {
		t.Errorf("expected directory_tsv dirs.tsv, got %s", cfg.Output.DirectoryTSV)
	}
	if len(cfg.Output.UpdateMarkdown) != 1 || cfg.Output.UpdateMarkdown[0].Format != "table" {
		t.Errorf("unexpected markdown injections: %v", cfg.Output.UpdateMarkdown)
	}
	if cfg.Performance.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Performance.Workers)
	}
	if cfg.Observability.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Observability.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version = 1`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.ScanPaths) != 1 || cfg.ScanPaths[0] != "." {
		t.Errorf("expected default scan path, got %v", cfg.ScanPaths)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.RescanPerSecond != 2 || cfg.Watch.RescanBurst != 1 {
		t.Errorf("unexpected rescan defaults: %v / %d", cfg.Watch.RescanPerSecond, cfg.Watch.RescanBurst)
	}
	if !cfg.DB.Enabled {
		t.Error("expected db enabled for v1 configs")
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "history.db" {
		t.Errorf("unexpected db defaults: %s %s", cfg.DB.Driver, cfg.DB.Path)
	}
	if cfg.DB.BusyTimeout != 5*time.Second {
		t.Errorf("expected busy timeout 5s, got %v", cfg.DB.BusyTimeout)
	}
	if cfg.Output.Snapshot != "propagation.json" {
		t.Errorf("expected default snapshot name, got %s", cfg.Output.Snapshot)
	}
	if cfg.Output.Report.Verbosity != "standard" {
		t.Errorf("expected standard verbosity, got %s", cfg.Output.Report.Verbosity)
	}
	if !cfg.Output.Report.TableOfContentsEnabled() {
		t.Error("expected TOC to default on")
	}
	if cfg.ExternalCache.Size != 32 {
		t.Errorf("expected external cache default 32, got %d", cfg.ExternalCache.Size)
	}
	if cfg.Observability.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.Observability.Port)
	}
}

func TestLoadNormalizesTokenKeys(t *testing.T) {
	content := `
[tokens]
keys = ["--color-", " --color- ", "", "--spacing-"]
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Tokens.Keys) != 2 {
		t.Fatalf("expected deduplicated keys, got %v", cfg.Tokens.Keys)
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load("nonexistent.toml"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	if _, err := Load(writeConfig(t, "bad = toml = format")); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported version",
			content: `version = 3`,
			wantErr: "unsupported config version",
		},
		{
			name: "token key without dashes",
			content: `
[tokens]
keys = ["color-"]
`,
			wantErr: "must start with --",
		},
		{
			name: "duplicate tracked property",
			content: `
[properties]
tracked = ["color", "color"]
`,
			wantErr: "duplicate tracked property",
		},
		{
			name: "rule without matchers",
			content: `
[[rules.excluded_values]]
property = "color"
`,
			wantErr: "at least one value or pattern",
		},
		{
			name: "invalid rule pattern",
			content: `
[[rules.excluded_values]]
property = "color"
patterns = ["("]
`,
			wantErr: "not a valid expression",
		},
		{
			name: "invalid externals glob",
			content: `
[externals.mapping]
"src/[" = ["tokens/base.css"]
`,
			wantErr: "not a valid glob",
		},
		{
			name: "externals without stylesheets",
			content: `
[externals.mapping]
"src/**" = []
`,
			wantErr: "at least one stylesheet",
		},
		{
			name: "bad verbosity",
			content: `
[output.report]
verbosity = "chatty"
`,
			wantErr: "verbosity must be one of",
		},
		{
			name: "bad markdown injection format",
			content: `
[[output.update_markdown]]
file = "README.md"
marker = "x"
format = "mermaid"
`,
			wantErr: "format must be one of",
		},
		{
			name: "active project without entries",
			content: `
[projects]
active = "missing"
`,
			wantErr: "projects.entries is empty",
		},
		{
			name: "bad db driver",
			content: `
[db]
driver = "postgres"
`,
			wantErr: "db.driver must be sqlite",
		},
		{
			name: "bad observability port",
			content: `
[observability]
port = 70000
`,
			wantErr: "observability.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version = 1`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Setenv("TOKENTRACE_DB_PATH", "custom.db")
	t.Setenv("TOKENTRACE_WATCH_DEBOUNCE", "2s")
	t.Setenv("TOKENTRACE_WATCH_RESCAN_PER_SECOND", "8.5")
	t.Setenv("TOKENTRACE_PERFORMANCE_WORKERS", "3")
	t.Setenv("TOKENTRACE_OBSERVABILITY_ENABLED", "true")

	ApplyEnvOverrides(cfg)

	if cfg.DB.Path != "custom.db" {
		t.Errorf("db path override not applied: %s", cfg.DB.Path)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce override not applied: %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.RescanPerSecond != 8.5 {
		t.Errorf("rescan override not applied: %v", cfg.Watch.RescanPerSecond)
	}
	if cfg.Performance.Workers != 3 {
		t.Errorf("workers override not applied: %d", cfg.Performance.Workers)
	}
	if !cfg.Observability.Enabled {
		t.Error("observability override not applied")
	}
}

func TestApplyEnvOverridesIgnoresInvalid(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version = 1`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Setenv("TOKENTRACE_WATCH_DEBOUNCE", "not-a-duration")
	t.Setenv("TOKENTRACE_PERFORMANCE_WORKERS", "many")

	ApplyEnvOverrides(cfg)

	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("invalid duration should be ignored, got %v", cfg.Watch.Debounce)
	}
	if cfg.Performance.Workers != 0 {
		t.Errorf("invalid int should be ignored, got %d", cfg.Performance.Workers)
	}
}
