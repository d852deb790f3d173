package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"forg/internal/organizer"
)

// OSFilesystemManager is the real filesystem implementation of
// organizer.FilesystemManager. It performs actual filesystem operations
// using the os package.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the
// real filesystem. ignorePatterns are applied when discovering files; the
// defaults (.forgignore itself) are always included.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	all := append([]string{}, defaultIgnorePatterns...)
	all = append(all, ignorePatterns...)
	return &OSFilesystemManager{
		ignore: NewIgnoreMatcher(all),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*organizer.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return organizer.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *organizer.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path *organizer.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// FindFiles discovers regular files under the given directory path.
// Files matching the configured ignore patterns are excluded.
func (m *OSFilesystemManager) FindFiles(path *organizer.Path, recursive bool) ([]*organizer.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	root := path.String()

	// Merge in patterns from a .forgignore file at the directory root, if any.
	matcher := m.ignore
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, ignoreFileName))
	if err != nil {
		return nil, err
	}
	if len(filePatterns) > 0 {
		matcher = m.ignore.Merge(filePatterns)
	}

	var paths []*organizer.Path

	if recursive {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			if d.IsDir() {
				if p != root && matcher.Match(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if matcher.Match(rel) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			paths = append(paths, organizer.NewPath(p, false, info))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			if matcher.Match(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			fullPath := filepath.Join(root, entry.Name())
			paths = append(paths, organizer.NewPath(fullPath, false, info))
		}
	}

	return paths, nil
}

// CreateDirectory creates a directory and any missing parents.
func (m *OSFilesystemManager) CreateDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// MoveFile moves src to dst, renaming the destination with a timestamp suffix
// if a file already exists there. Returns the final destination path.
func (m *OSFilesystemManager) MoveFile(src *organizer.Path, dst string) (string, error) {
	final := dst
	if _, err := os.Stat(dst); err == nil {
		final = timestampedName(dst, time.Now())
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	if err := os.Rename(src.String(), final); err != nil {
		// Rename fails across filesystem boundaries; fall back to copy+delete.
		if copyErr := copyFile(src.String(), final); copyErr != nil {
			return "", fmt.Errorf("moving file: %w", err)
		}
		if rmErr := os.Remove(src.String()); rmErr != nil {
			return "", fmt.Errorf("removing source after copy: %w", rmErr)
		}
	}
	return final, nil
}

// Remove deletes a regular file.
func (m *OSFilesystemManager) Remove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat path: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("refusing to remove non-regular file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// DetectMimeType reports the MIME type of the file at path by sniffing its
// content, e.g. "text/plain; charset=utf-8".
func (m *OSFilesystemManager) DetectMimeType(path *organizer.Path) (string, error) {
	if path.IsDir() {
		return "", fmt.Errorf("cannot detect mime type of directory: %s", path.String())
	}
	mtype, err := mimetype.DetectFile(path.String())
	if err != nil {
		return "", fmt.Errorf("detecting mime type: %w", err)
	}
	return mtype.String(), nil
}

// timestampedName inserts a timestamp suffix before the extension:
// "notes.txt" becomes "notes_20240131_154500.txt".
func timestampedName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Compile-time checks that OSFilesystemManager implements the organizer interfaces
var _ organizer.FilesystemManager = (*OSFilesystemManager)(nil)
var _ organizer.MimeDetector = (*OSFilesystemManager)(nil)
