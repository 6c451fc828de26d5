package formats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
)

type MarkdownReportData struct {
	FileCount         int
	DeclarationCount  int
	TokenCount        int
	TrackedCount      int
	GlobalPropagation float64
	SentinelFileCount int

	Directories      map[string]coverage.DirectoryStats
	WorstFiles       []coverage.FileResult
	Unresolved       []resolver.UnresolvedVariable
	ByResolutionType map[resolver.ResolutionType]int
}

type MarkdownReportOptions struct {
	ProjectName         string
	ProjectRoot         string
	Version             string
	GeneratedAt         time.Time
	Verbosity           string
	TableOfContents     bool
	CollapsibleSections bool
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(data MarkdownReportData, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	verbosity := normalizeReportVerbosity(opts.Verbosity)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Design Token Propagation Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Token Propagation Report\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Executive Summary](#executive-summary)\n")
		b.WriteString("- [Directories](#directories)\n")
		if verbosity != "minimal" {
			b.WriteString("- [Lowest Files](#lowest-files)\n")
		}
		b.WriteString("- [Unresolved Variables](#unresolved-variables)\n")
		if verbosity == "detailed" {
			b.WriteString("- [Resolution Breakdown](#resolution-breakdown)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.SummaryBlock(data))

	b.WriteString("## Directories\n")
	b.WriteString(m.DirectoryTable(data.Directories))

	if verbosity != "minimal" {
		m.writeWorstFiles(&b, data.WorstFiles, opts.CollapsibleSections)
	}
	m.writeUnresolved(&b, data.Unresolved, opts.CollapsibleSections, verbosity)
	if verbosity == "detailed" {
		m.writeResolutionBreakdown(&b, data.ByResolutionType)
	}

	return b.String(), nil
}

// SummaryBlock renders the executive-summary table. It doubles as the
// injectable "summary" block for markdown updates.
func (m *MarkdownGenerator) SummaryBlock(data MarkdownReportData) string {
	measurable := data.DeclarationCount - data.TrackedCount

	var b strings.Builder
	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Analyzed Files | %d |\n", data.FileCount))
	b.WriteString(fmt.Sprintf("| Tracked Declarations | %d |\n", data.DeclarationCount))
	b.WriteString(fmt.Sprintf("| Measurable Declarations | %d |\n", measurable))
	b.WriteString(fmt.Sprintf("| Token Declarations | %d |\n", data.TokenCount))
	b.WriteString(fmt.Sprintf("| Global Propagation | %s |\n", pctLabel(data.GlobalPropagation)))
	b.WriteString(fmt.Sprintf("| Files Without Measurable Declarations | %d |\n", data.SentinelFileCount))
	b.WriteString(fmt.Sprintf("| Unresolved Variables | %d |\n\n", len(data.Unresolved)))
	return b.String()
}

// DirectoryTable renders the per-directory propagation table. It doubles as
// the injectable "table" block for markdown updates.
func (m *MarkdownGenerator) DirectoryTable(stats map[string]coverage.DirectoryStats) string {
	var b strings.Builder
	if len(stats) == 0 {
		b.WriteString("No directories analyzed.\n\n")
		return b.String()
	}
	b.WriteString("| Directory | Files | Usable | Average Propagation |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, key := range coverage.SortedKeys(stats) {
		entry := stats[key]
		b.WriteString(fmt.Sprintf("| `%s` | %d | %d | %s |\n",
			decodeDirKey(key), entry.FileCount, entry.UsableCount, pctLabel(entry.AveragePropagation)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *MarkdownGenerator) writeWorstFiles(b *strings.Builder, files []coverage.FileResult, collapsible bool) {
	b.WriteString("## Lowest Files\n")
	if len(files) == 0 {
		b.WriteString("No measurable files analyzed.\n\n")
		return
	}
	rows := make([]string, 0, len(files))
	for _, file := range files {
		rows = append(rows, fmt.Sprintf("| `%s` | %s | %d | %d |\n",
			file.FileIdentifier, pctLabel(file.Percentage), file.TokenCount, len(file.Declarations)))
	}
	m.writeTableWithCollapse(
		b,
		"File details",
		collapsible,
		len(rows) > 10,
		[]string{"| File | Propagation | Tokens | Declarations |\n", "| --- | --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeUnresolved(b *strings.Builder, rows []resolver.UnresolvedVariable, collapsible bool, verbosity string) {
	b.WriteString("## Unresolved Variables\n")
	if len(rows) == 0 {
		b.WriteString("No unresolved variables detected.\n\n")
		return
	}
	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		files := row.Files
		suffix := ""
		if verbosity != "detailed" && len(files) > 3 {
			suffix = fmt.Sprintf(" +%d more", len(files)-3)
			files = files[:3]
		}
		rendered = append(rendered, fmt.Sprintf("| `%s` | %d | `%s`%s |\n",
			row.VariableName, row.FileCount, strings.Join(files, "`, `"), suffix))
	}
	m.writeTableWithCollapse(
		b,
		"Unresolved variable details",
		collapsible,
		len(rendered) > 15,
		[]string{"| Variable | File Count | Files |\n", "| --- | --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeResolutionBreakdown(b *strings.Builder, byType map[resolver.ResolutionType]int) {
	b.WriteString("## Resolution Breakdown\n")
	if len(byType) == 0 {
		b.WriteString("No tracked declarations analyzed.\n\n")
		return
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	b.WriteString("| Resolution | Declarations |\n")
	b.WriteString("| --- | --- |\n")
	for _, t := range types {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", t, byType[resolver.ResolutionType(t)]))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}
