package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ActiveProject identifies the project a run operates on, including the
// namespace its history snapshots are stored under.
type ActiveProject struct {
	Name        string
	Root        string
	DBNamespace string
	Key         string
	ConfigFile  string
}

// ResolveActiveProject picks the project for this run: the configured active
// entry when set, otherwise the registered project whose root contains the
// working directory, otherwise the first entry. With no entries at all the
// run operates on a synthetic "default" project rooted at cwd.
func ResolveActiveProject(cfg *Config, cwd string) (ActiveProject, error) {
	entries := cfg.Projects.Entries
	if len(entries) == 0 {
		return ActiveProject{
			Name:        "default",
			Root:        filepath.Clean(cwd),
			DBNamespace: "default",
			Key:         "default",
		}, nil
	}

	if active := cfg.Projects.Active; active != "" {
		for _, entry := range entries {
			if entry.Name == active {
				return materializeProject(entry, cwd), nil
			}
		}
		return ActiveProject{}, fmt.Errorf("projects.active references unknown project %q", active)
	}

	if absCWD, err := filepath.Abs(cwd); err == nil {
		var best ActiveProject
		bestLen := -1
		for _, entry := range entries {
			candidate := materializeProject(entry, cwd)
			rel, relErr := filepath.Rel(candidate.Root, absCWD)
			if relErr != nil {
				continue
			}
			if rel != "." && strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
				continue
			}
			if rel == ".." {
				continue
			}
			if l := len(candidate.Root); l > bestLen {
				best = candidate
				bestLen = l
			}
		}
		if bestLen >= 0 {
			return best, nil
		}
	}

	return materializeProject(entries[0], cwd), nil
}

// LoadProjectRegistry reads additional project entries from a standalone
// registry file.
func LoadProjectRegistry(path string) ([]ProjectEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Entries []ProjectEntry `toml:"entries"`
	}
	if _, err := toml.Decode(string(data), &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

func materializeProject(entry ProjectEntry, base string) ActiveProject {
	root := ResolveRelative(base, entry.Root)
	key := normalizeProjectNamespace(entry.DBNamespace, entry.Name)
	if key == "" {
		key = "default"
	}
	return ActiveProject{
		Name:        entry.Name,
		Root:        filepath.Clean(root),
		DBNamespace: key,
		Key:         key,
		ConfigFile:  entry.ConfigFile,
	}
}
