package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/core/ports"
	"tokentrace/internal/data/history"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/shared/version"
	"tokentrace/internal/ui/report"
)

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) CurrentUpdate() Update {
	return updateFromSnapshot(a.buildSummarySnapshot())
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

type outputTargets struct {
	Snapshot      string
	DirectoryTSV  string
	UnresolvedTSV string
	Markdown      string
}

func (a *App) resolveOutputTargets() outputTargets {
	root := a.paths.OutputRoot
	return outputTargets{
		Snapshot:      helpers.ResolveOutputPath(strings.TrimSpace(a.Config.Output.Snapshot), root),
		DirectoryTSV:  helpers.ResolveOutputPath(strings.TrimSpace(a.Config.Output.DirectoryTSV), root),
		UnresolvedTSV: helpers.ResolveOutputPath(strings.TrimSpace(a.Config.Output.UnresolvedTSV), root),
		Markdown:      helpers.ResolveReportPath(strings.TrimSpace(a.Config.Output.Markdown), root, a.paths.ReportsDir),
	}
}

// GenerateOutputs writes every configured artifact from the given snapshot:
// the propagation JSON, the directory and unresolved TSVs, the markdown
// report, and any configured markdown section injections.
func (a *App) GenerateOutputs(ctx context.Context, snapshot ports.SummarySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	targets := a.resolveOutputTargets()

	if targets.Snapshot != "" {
		commitHash, _ := history.ResolveGitMetadata(a.projectRoot)
		snapshotJSON, err := report.NewSnapshotGenerator().Generate(report.SnapshotData{
			GeneratedAt: time.Now().UTC(),
			RunID:       a.currentRunID(),
			Commit:      commitHash,
			Global:      snapshot.GlobalPropagation,
			FileCount:   snapshot.FileCount,
			Directories: snapshot.Directories,
			Files:       a.allResults(),
			Unresolved:  snapshot.Unresolved,
		})
		if err != nil {
			return fmt.Errorf("generate snapshot output: %w", err)
		}
		if err := helpers.WriteArtifact(targets.Snapshot, snapshotJSON); err != nil {
			return fmt.Errorf("write snapshot output %q: %w", targets.Snapshot, err)
		}
	}

	tsvGen := report.NewTSVGenerator()
	if targets.DirectoryTSV != "" {
		tsv, err := tsvGen.GenerateDirectories(snapshot.Directories)
		if err != nil {
			return fmt.Errorf("generate directory TSV output: %w", err)
		}
		if err := helpers.WriteArtifact(targets.DirectoryTSV, tsv); err != nil {
			return fmt.Errorf("write directory TSV output %q: %w", targets.DirectoryTSV, err)
		}
	}
	if targets.UnresolvedTSV != "" {
		tsv, err := tsvGen.GenerateUnresolved(snapshot.Unresolved)
		if err != nil {
			return fmt.Errorf("generate unresolved TSV output: %w", err)
		}
		if err := helpers.WriteArtifact(targets.UnresolvedTSV, tsv); err != nil {
			return fmt.Errorf("write unresolved TSV output %q: %w", targets.UnresolvedTSV, err)
		}
	}

	markdownGen := report.NewMarkdownGenerator()
	reportData := a.markdownReportData(snapshot)

	for _, injection := range a.Config.Output.UpdateMarkdown {
		format := strings.ToLower(strings.TrimSpace(injection.Format))
		block := ""
		switch format {
		case "table":
			block = markdownGen.DirectoryTable(snapshot.Directories)
		case "summary":
			block = markdownGen.SummaryBlock(reportData)
		default:
			continue
		}

		target := injection.File
		if !filepath.IsAbs(target) {
			target = filepath.Join(a.paths.OutputRoot, target)
		}
		if err := report.InjectSection(target, injection.Marker, block); err != nil {
			return fmt.Errorf("inject %s block into %q with marker %q: %w", format, injection.File, injection.Marker, err)
		}
	}

	if targets.Markdown != "" {
		md, err := markdownGen.Generate(reportData, a.markdownReportOptions(a.Config.Output.Report.Verbosity))
		if err != nil {
			return fmt.Errorf("generate markdown report: %w", err)
		}
		if err := helpers.WriteArtifact(targets.Markdown, md); err != nil {
			return fmt.Errorf("write markdown report %q: %w", targets.Markdown, err)
		}
	}

	return nil
}

func (a *App) markdownReportData(snapshot ports.SummarySnapshot) report.MarkdownReportData {
	return report.MarkdownReportData{
		FileCount:         snapshot.FileCount,
		DeclarationCount:  snapshot.DeclarationCount,
		TokenCount:        snapshot.TokenCount,
		TrackedCount:      snapshot.TrackedCount,
		GlobalPropagation: snapshot.GlobalPropagation,
		SentinelFileCount: snapshot.SentinelFileCount,
		Directories:       snapshot.Directories,
		WorstFiles:        worstFiles(a.allResults(), 10),
		Unresolved:        snapshot.Unresolved,
		ByResolutionType:  snapshot.ByResolutionType,
	}
}

func (a *App) markdownReportOptions(verbosity string) report.MarkdownReportOptions {
	return report.MarkdownReportOptions{
		ProjectName:         filepath.Base(a.projectRoot),
		ProjectRoot:         a.projectRoot,
		Version:             version.Version,
		GeneratedAt:         time.Now().UTC(),
		Verbosity:           verbosity,
		TableOfContents:     a.Config.Output.Report.TableOfContentsEnabled(),
		CollapsibleSections: a.Config.Output.Report.CollapsibleSectionsEnabled(),
	}
}

// worstFiles returns the measurable files with the lowest propagation.
func worstFiles(results []coverage.FileResult, limit int) []coverage.FileResult {
	measurable := make([]coverage.FileResult, 0, len(results))
	for _, result := range results {
		if result.Percentage == coverage.NotApplicable {
			continue
		}
		measurable = append(measurable, result)
	}
	sort.Slice(measurable, func(i, j int) bool {
		if measurable[i].Percentage == measurable[j].Percentage {
			return measurable[i].FileIdentifier < measurable[j].FileIdentifier
		}
		return measurable[i].Percentage < measurable[j].Percentage
	})
	if len(measurable) > limit {
		measurable = measurable[:limit]
	}
	return measurable
}

// GenerateMarkdownReport renders the markdown report on demand, optionally
// writing it to disk.
func (a *App) GenerateMarkdownReport(ctx context.Context, req MarkdownReportRequest) (MarkdownReportResult, error) {
	if err := ctx.Err(); err != nil {
		return MarkdownReportResult{}, err
	}

	snapshot := a.buildSummarySnapshot()
	verbosity := strings.TrimSpace(req.Verbosity)
	if verbosity == "" {
		verbosity = a.Config.Output.Report.Verbosity
	}

	md, err := report.NewMarkdownGenerator().Generate(a.markdownReportData(snapshot), a.markdownReportOptions(verbosity))
	if err != nil {
		return MarkdownReportResult{}, fmt.Errorf("generate markdown report: %w", err)
	}

	outPath := strings.TrimSpace(req.OutputPath)
	if outPath == "" {
		outPath = strings.TrimSpace(a.Config.Output.Markdown)
	}
	if outPath == "" {
		outPath = "propagation-report.md"
	}
	if !filepath.IsAbs(outPath) {
		outPath = helpers.ResolveReportPath(outPath, a.paths.OutputRoot, a.paths.ReportsDir)
	}

	result := MarkdownReportResult{Markdown: md, Path: outPath}
	if req.WriteFile {
		if err := helpers.WriteArtifact(outPath, md); err != nil {
			return MarkdownReportResult{}, fmt.Errorf("write markdown report %q: %w", outPath, err)
		}
		result.Written = true
	}
	return result, nil
}
