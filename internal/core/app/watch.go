package app

import (
	"context"
	"fmt"

	"tokentrace/internal/core/watcher"
)

// StartWatcher begins watching the scan roots for stylesheet changes.
// Change batches pass through the rescan limiter before re-analysis so
// editor save storms cannot saturate the scanner.
func (a *App) StartWatcher() error {
	if a.activeWatcher != nil {
		return fmt.Errorf("watcher already running")
	}

	handler := func(paths []string) {
		if a.rescanLimiter != nil {
			if err := a.rescanLimiter.Wait(context.Background(), 1); err != nil {
				return
			}
		}
		a.HandleChanges(paths)
	}

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files, handler)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.SetExtensionFilter(a.styleParser.SupportedExtensions())

	a.activeWatcher = w
	return w.Watch(a.scanRoots())
}
