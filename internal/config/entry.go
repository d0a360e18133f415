package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// DefaultEntries are probed in order when no entry is given.
var DefaultEntries = []string{"src/main.ts", "src/index.ts"}

// ResolveEntry returns the project-relative entry module. An explicit entry
// must exist; otherwise the first default found with matching case wins.
func ResolveEntry(root, entry string) (string, error) {
	if entry == "" {
		for _, candidate := range DefaultEntries {
			if fileExistsWithCase(root, candidate) {
				return candidate, nil
			}
		}
		return "", foundationerrors.ResolutionError(fmt.Sprintf("failed to locate entry file in %s", root)).
			WithContext("valid_entries", "main.ts, index.ts").
			Build()
	}
	if _, err := os.Stat(filepath.Join(root, entry)); err != nil {
		return "", foundationerrors.ResolutionError(fmt.Sprintf("entry file %s does not exist", entry)).
			WithCause(err).
			WithContext("entry", entry).
			Build()
	}
	return entry, nil
}

// fileExistsWithCase walks rel from root and requires every path element to
// match a directory listing exactly, so case-insensitive filesystems do not
// accept a miscased entry.
func fileExistsWithCase(root, rel string) bool {
	dir := root
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/") {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false
		}
		if !slices.ContainsFunc(entries, func(e os.DirEntry) bool { return e.Name() == part }) {
			return false
		}
		dir = filepath.Join(dir, part)
	}
	return true
}
