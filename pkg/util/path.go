package util

import (
	"os"
	"path/filepath"
	"strings"
)

// GetImportDirectory figures out where exported course files are read from
func GetImportDirectory(configured string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}

	// container layout mounts exports here
	if dir := os.Getenv("INTERNAL_COURSES_DIR"); dir != "" {
		return dir
	}

	// last resort - current directory
	return "."
}

// EnsureDirectoryExists creates directory if it doesn't exist
func EnsureDirectoryExists(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// try to create it
		err = os.MkdirAll(path, 0755)
		if err != nil {
			return false
		}
	}
	return true
}

// ResolveImportPath joins a relative export path onto the import directory.
// Paths escaping the directory resolve to "".
func ResolveImportPath(baseDir, relativePath string) string {
	full := filepath.Join(baseDir, relativePath)
	rel, err := filepath.Rel(baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return full
}
