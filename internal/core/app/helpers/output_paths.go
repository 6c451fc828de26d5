package helpers

import (
	"path/filepath"

	"tokentrace/internal/shared/util"
)

func ResolveOutputPath(path, root string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// ResolveReportPath places bare file names into the reports directory while
// leaving explicit relative or absolute paths alone.
func ResolveReportPath(path, root, reportsDir string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if util.ContainsPathSeparator(path) {
		return filepath.Join(root, path)
	}
	return filepath.Join(reportsDir, path)
}

func WriteArtifact(path, content string) error {
	return util.WriteStringWithDirs(path, content, 0o644)
}
