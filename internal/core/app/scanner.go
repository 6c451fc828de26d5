package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"tokentrace/internal/core/app/helpers"
	"tokentrace/internal/engine/coverage"
	"tokentrace/internal/engine/parser"
	"tokentrace/internal/engine/resolver"
	"tokentrace/internal/shared/observability"
	"tokentrace/internal/shared/util"
)

func (a *App) InitialScan(ctx context.Context) error {
	roots := helpers.UniqueScanRoots(a.scanRoots())
	files, err := a.ScanDirectories(roots)
	if err != nil {
		return err
	}
	_, err = a.processFiles(ctx, files)
	return err
}

func (a *App) scanRoots() []string {
	paths := a.Config.ScanPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			roots = append(roots, p)
			continue
		}
		roots = append(roots, filepath.Join(a.projectRoot, p))
	}
	return roots
}

// ScanDirectories walks the given roots and returns every supported
// stylesheet path, honoring the exclusion globs compiled at construction.
func (a *App) ScanDirectories(paths []string) ([]string, error) {
	var files []string

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range a.excludeDirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if !a.styleParser.IsSupportedPath(path) {
				return nil
			}

			for _, g := range a.excludeFileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// processFiles fans the path list out over the configured worker count.
// Per-file failures are warnings; the scan keeps going. The heap guard
// purges the external cache when the process outgrows its budget.
func (a *App) processFiles(ctx context.Context, files []string) ([]string, error) {
	workers := a.Config.Performance.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	var (
		wg        sync.WaitGroup
		warnMu    sync.Mutex
		warnings  []string
		processed atomic.Int64
	)
	jobs := make(chan string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := a.ProcessFile(path); err != nil {
					observability.FileAnalysisErrorsTotal.Inc()
					slog.Warn("failed to process file", "path", path, "error", err)
					warnMu.Lock()
					warnings = append(warnings, fmt.Sprintf("process file %s: %v", a.fileID(path), err))
					warnMu.Unlock()
				}
				if n := processed.Add(1); n%100 == 0 && a.Config.Performance.MaxHeapMB > 0 {
					if util.HeapAllocMB() > uint64(a.Config.Performance.MaxHeapMB) {
						a.externals.Purge()
					}
				}
			}
		}()
	}

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return warnings, err
	}
	return warnings, nil
}

// ProcessFile analyzes a single stylesheet: parse, seed external bindings,
// collect locals, trace every tracked declaration, and store the file
// result keyed by its repo-relative path.
func (a *App) ProcessFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	start := time.Now()
	sheet, err := a.styleParser.ParseFile(path, content)
	if err != nil {
		return err
	}
	observability.ParsingDuration.WithLabelValues(sheet.Language).Observe(time.Since(start).Seconds())

	fileID := a.fileID(path)
	bindings := make(resolver.BindingMap)
	resolver.MergeExternalBindings(bindings, a.externals.bindingsFor(fileID))
	resolver.CollectLocalBindings(sheet, bindings, fileID)

	decls := make([]resolver.Declaration, 0)
	sheet.Walk(func(d *parser.Declaration) {
		if !a.analyzer.IsTrackedProperty(d.Property) {
			return
		}
		decl := a.analyzer.AnalyzeDeclaration(d, bindings, fileID)
		observability.TraceSteps.Observe(float64(len(decl.ResolutionTrace)))
		a.tracker.AddFromDeclaration(&decl, fileID)
		decls = append(decls, decl)
	})

	result := coverage.BuildFileResult(fileID, sheet.Language, decls, bindings, sheet.Warnings)

	a.resultsMu.Lock()
	a.results[fileID] = result
	a.resultsMu.Unlock()
	observability.FilesAnalyzedTotal.Inc()
	return nil
}

// RemoveFile drops a deleted stylesheet from the result set.
func (a *App) RemoveFile(path string) {
	fileID := a.fileID(path)
	a.resultsMu.Lock()
	delete(a.results, fileID)
	a.resultsMu.Unlock()
}
