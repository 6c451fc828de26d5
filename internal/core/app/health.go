package app

import (
	"context"
	"fmt"
	"time"

	"tokentrace/internal/core/ports"
)

// HealthStatus is the payload served by the /health endpoint.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// HealthService reports component-level liveness for the observability
// server.
type HealthService struct {
	app   *App
	store ports.HistoryStore
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// SetHistoryStore attaches the snapshot store so Check can probe it.
func (h *HealthService) SetHistoryStore(store ports.HistoryStore) {
	h.store = store
}

func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: map[string]string{},
	}
	if err := ctx.Err(); err != nil {
		status.Status = "down"
		status.Components["context"] = err.Error()
		return status
	}
	if h.app == nil {
		status.Status = "down"
		status.Components["app"] = "missing"
		return status
	}

	status.Components["parser"] = "up"
	if len(h.app.styleParser.SupportedExtensions()) == 0 {
		status.Components["parser"] = "no supported languages"
		status.Status = "degraded"
	}

	status.Components["analyzer"] = fmt.Sprintf("%d files analyzed", h.app.resultCount())

	if keys := h.app.TokenKeys(); len(keys) == 0 {
		status.Components["tokens"] = "no design tokens configured"
		status.Status = "degraded"
	} else {
		status.Components["tokens"] = fmt.Sprintf("%d token keys", len(keys))
	}

	if h.store != nil {
		status.Components["history"] = "up"
		if _, err := h.store.LoadSnapshots("health", time.Now().Add(time.Minute)); err != nil {
			status.Components["history"] = err.Error()
			status.Status = "degraded"
		}
	}

	if h.app.activeWatcher != nil {
		status.Components["watcher"] = "running"
	}
	return status
}
