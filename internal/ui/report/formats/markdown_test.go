package formats

import (
	"strings"
	"testing"
	"time"

	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/resolver"
)

func testReportData() MarkdownReportData {
	return MarkdownReportData{
		FileCount:         3,
		DeclarationCount:  12,
		TokenCount:        6,
		TrackedCount:      2,
		GlobalPropagation: 61.54,
		SentinelFileCount: 1,
		Directories: map[string]coverage.DirectoryStats{
			"styles%2Fcomponents": {AveragePropagation: 45.5, FileCount: 2, UsableCount: 2, Files: []string{"styles/components/a.css", "styles/components/b.css"}},
			".":                   {AveragePropagation: coverage.NotApplicable, FileCount: 1, Files: []string{"tokens.css"}},
		},
		WorstFiles: []coverage.FileResult{
			{FileIdentifier: "styles/components/a.css", Percentage: 25, TokenCount: 1},
		},
		Unresolved: []resolver.UnresolvedVariable{
			{VariableName: "--missing", FileCount: 2, Files: []string{"a.css", "b.css", "c.css", "d.css"}},
		},
		ByResolutionType: map[resolver.ResolutionType]int{
			resolver.ResolutionDirect: 4,
			resolver.ResolutionLocal:  8,
		},
	}
}

func TestMarkdownGenerator_Generate(t *testing.T) {
	md, err := NewMarkdownGenerator().Generate(testReportData(), MarkdownReportOptions{
		ProjectName:     "webapp",
		Version:         "0.3.0",
		GeneratedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TableOfContents: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"title: Design Token Propagation Report",
		"project: webapp",
		"generated_at: 2025-06-01T12:00:00Z",
		"## Table of Contents",
		"## Executive Summary",
		"| Global Propagation | 61.54% |",
		"| Measurable Declarations | 10 |",
		"| `styles/components` | 2 | 2 | 45.50% |",
		"| `.` | 1 | 0 | n/a |",
		"## Lowest Files",
		"| `styles/components/a.css` | 25.00% | 1 | 0 |",
		"## Unresolved Variables",
		"| `--missing` | 2 | `a.css`, `b.css`, `c.css` +1 more |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}

	if strings.Contains(md, "## Resolution Breakdown") {
		t.Error("resolution breakdown should only render at detailed verbosity")
	}
}

func TestMarkdownGenerator_Verbosity(t *testing.T) {
	gen := NewMarkdownGenerator()

	minimal, err := gen.Generate(testReportData(), MarkdownReportOptions{Verbosity: "minimal"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(minimal, "## Lowest Files") {
		t.Error("minimal verbosity should skip the worst-files table")
	}

	detailed, err := gen.Generate(testReportData(), MarkdownReportOptions{Verbosity: "detailed"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(detailed, "## Resolution Breakdown") {
		t.Error("detailed verbosity should render the resolution breakdown")
	}
	if !strings.Contains(detailed, "| direct | 4 |") || !strings.Contains(detailed, "| local | 8 |") {
		t.Errorf("unexpected breakdown rows:\n%s", detailed)
	}
	if strings.Contains(detailed, "+1 more") {
		t.Error("detailed verbosity should list every unresolved file")
	}
}

func TestMarkdownGenerator_CollapsibleSections(t *testing.T) {
	data := testReportData()
	data.Unresolved = nil
	for i := 0; i < 20; i++ {
		data.Unresolved = append(data.Unresolved, resolver.UnresolvedVariable{
			VariableName: "--missing",
			FileCount:    1,
			Files:        []string{"a.css"},
		})
	}

	md, err := NewMarkdownGenerator().Generate(data, MarkdownReportOptions{CollapsibleSections: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "<details>") || !strings.Contains(md, "<summary>Unresolved variable details</summary>") {
		t.Errorf("expected collapsible unresolved section:\n%s", md)
	}
}

func TestDirectoryTable_Empty(t *testing.T) {
	got := NewMarkdownGenerator().DirectoryTable(nil)
	if !strings.Contains(got, "No directories analyzed.") {
		t.Errorf("unexpected empty table output: %q", got)
	}
}
