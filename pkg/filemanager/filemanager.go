// Package filemanager finds pending export files and moves processed ones
// into the archive directory.
package filemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/klog"
)

const DefaultPattern = "*.csv"

// ArchiveError is returned when a processed file could not be moved into
// the archive. The file is then still pending.
type ArchiveError struct {
	Path   string
	Target string
	Err    error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("failed to archive %s to %s: %v", e.Path, e.Target, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

var ErrArchiveExists = errors.New("archive target already exists")

type Manager struct {
	RawDir     string
	ArchiveDir string
	Pattern    string
}

func New(rawDir, archiveDir, pattern string) *Manager {
	if pattern == "" {
		pattern = DefaultPattern
	}

	return &Manager{RawDir: rawDir, ArchiveDir: archiveDir, Pattern: pattern}
}

// ListPending returns the regular files in RawDir matching Pattern, sorted by
// name. A missing RawDir simply has no pending files.
func (m *Manager) ListPending() ([]string, error) {
	if _, err := filepath.Match(m.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", m.Pattern, err)
	}

	matches, err := filepath.Glob(filepath.Join(m.RawDir, m.Pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", m.RawDir, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", match, err)
		}

		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, match)
	}

	sort.Strings(files)
	return files, nil
}

// Archive moves path into ArchiveDir keeping its file name, creating the
// directory when needed. An existing file at the target is never replaced.
func (m *Manager) Archive(path string) (string, error) {
	target := filepath.Join(m.ArchiveDir, filepath.Base(path))

	if err := os.MkdirAll(m.ArchiveDir, 0o755); err != nil {
		return "", &ArchiveError{Path: path, Target: target, Err: err}
	}

	if _, err := os.Lstat(target); err == nil {
		return "", &ArchiveError{Path: path, Target: target, Err: ErrArchiveExists}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", &ArchiveError{Path: path, Target: target, Err: err}
	}

	// os.Rename is atomic within a filesystem, across filesystems it fails
	// and the file stays pending.
	if err := os.Rename(path, target); err != nil {
		return "", &ArchiveError{Path: path, Target: target, Err: err}
	}

	klog.V(2).Infof("Archived %s to %s", path, target)
	return target, nil
}
