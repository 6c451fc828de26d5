package history

import (
	"fmt"
	"time"
)

// Adapter exposes a Store through the narrow surface the core ports expect,
// keeping the sqlite-specific API (Path, Close, retry behavior) out of the
// application layer.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

func (a *Adapter) SaveSnapshot(projectKey string, snapshot Snapshot) error {
	if a.store == nil {
		return fmt.Errorf("history store is not open")
	}
	return a.store.SaveSnapshot(projectKey, snapshot)
}

func (a *Adapter) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	if a.store == nil {
		return nil, fmt.Errorf("history store is not open")
	}
	return a.store.LoadSnapshots(projectKey, since)
}
