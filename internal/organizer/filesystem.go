package organizer

import (
	"io"
	"io/fs"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// Stat returns fresh file info for a path.
	// Unlike path.Info() which returns cached info from when the path was resolved,
	// this always fetches current info from the filesystem.
	Stat(path *Path) (fs.FileInfo, error)

	// FindFiles discovers regular files under the given directory path.
	// Ignored files (per configured ignore patterns) are excluded.
	// When recursive is true, files in subdirectories are included.
	FindFiles(path *Path, recursive bool) ([]*Path, error)

	// CreateDirectory creates a directory and any missing parents.
	// Creating an existing directory is a no-op.
	CreateDirectory(dir string) error

	// MoveFile moves src to the destination path. If a file already exists at
	// dst, the destination is renamed by appending a timestamp suffix before
	// the extension instead of overwriting. Returns the final destination path.
	MoveFile(src *Path, dst string) (string, error)

	// Remove deletes a regular file.
	Remove(path string) error
}

// DetectMimeType reports the MIME type of a file, e.g. "text/plain; charset=utf-8".
// Split from FilesystemManager so components that only sniff types (classifier,
// similarity engine) don't depend on move/delete capability.
type MimeDetector interface {
	DetectMimeType(path *Path) (string, error)
}
