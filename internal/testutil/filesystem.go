package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"forg/internal/organizer"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	MimeType    string // returned by DetectMimeType; empty = guessed from content
}

// MockFilesystemManager is an in-memory filesystem for testing.
// It records moves and removals so tests can assert on them.
type MockFilesystemManager struct {
	files map[string]*MockFile

	// Moved maps source path to final destination for every MoveFile call.
	Moved map[string]string
	// Removed lists every path passed to Remove, in order.
	Removed []string

	// FailOpen contains paths whose Open should fail, simulating unreadable files.
	FailOpen map[string]bool
	// FailRemove contains paths whose Remove should fail.
	FailRemove map[string]bool
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:      make(map[string]*MockFile),
		Moved:      make(map[string]string),
		FailOpen:   make(map[string]bool),
		FailRemove: make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem with the current time as ModTime.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.AddFileWithTime(path, content, time.Now())
}

// AddFileWithTime adds a file with an explicit modification time.
func (m *MockFilesystemManager) AddFileWithTime(path string, content []byte, modTime time.Time) {
	abs, _ := filepath.Abs(path)
	m.files[abs] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     modTime,
		IsDirectory: false,
	}
}

// SetMimeType overrides the MIME type reported for a file.
func (m *MockFilesystemManager) SetMimeType(path, mimeType string) {
	abs, _ := filepath.Abs(path)
	if f, ok := m.files[abs]; ok {
		f.MimeType = mimeType
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	abs, _ := filepath.Abs(path)
	m.files[abs] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*organizer.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	return organizer.NewPath(absPath, file.IsDirectory, m.infoFor(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *organizer.Path) (io.ReadCloser, error) {
	if m.FailOpen[path.String()] {
		return nil, fmt.Errorf("open failed: %s", path.String())
	}
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Stat(path *organizer.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return m.infoFor(path.String(), file), nil
}

// FindFiles returns regular files under dir in sorted path order.
func (m *MockFilesystemManager) FindFiles(path *organizer.Path, recursive bool) ([]*organizer.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	root := path.String()
	var found []string
	for p, f := range m.files {
		if f.IsDirectory || !strings.HasPrefix(p, root+string(filepath.Separator)) {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		if !recursive && strings.Contains(rel, string(filepath.Separator)) {
			continue
		}
		found = append(found, p)
	}
	sort.Strings(found)

	paths := make([]*organizer.Path, 0, len(found))
	for _, p := range found {
		paths = append(paths, organizer.NewPath(p, false, m.infoFor(p, m.files[p])))
	}
	return paths, nil
}

// CreateDirectory registers a directory (and implicitly its parents).
func (m *MockFilesystemManager) CreateDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	for p := abs; p != string(filepath.Separator) && p != "."; p = filepath.Dir(p) {
		if existing, ok := m.files[p]; ok && !existing.IsDirectory {
			return fmt.Errorf("not a directory: %s", p)
		}
		m.AddDirectory(p)
	}
	return nil
}

// MoveFile relocates a file, appending a "_moved" suffix on collision.
func (m *MockFilesystemManager) MoveFile(src *organizer.Path, dst string) (string, error) {
	file, ok := m.files[src.String()]
	if !ok {
		return "", fmt.Errorf("file not found: %s", src.String())
	}

	final := dst
	if _, exists := m.files[dst]; exists {
		ext := filepath.Ext(dst)
		final = strings.TrimSuffix(dst, ext) + "_moved" + ext
	}

	m.files[final] = file
	delete(m.files, src.String())
	m.Moved[src.String()] = final
	return final, nil
}

// Remove deletes a file, recording the removal.
func (m *MockFilesystemManager) Remove(path string) error {
	if m.FailRemove[path] {
		return fmt.Errorf("remove failed: %s", path)
	}
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(m.files, path)
	m.Removed = append(m.Removed, path)
	return nil
}

// DetectMimeType returns the configured MIME type, or guesses text/plain for
// content that looks like text and application/octet-stream otherwise.
func (m *MockFilesystemManager) DetectMimeType(path *organizer.Path) (string, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path.String())
	}
	if file.MimeType != "" {
		return file.MimeType, nil
	}
	if bytes.ContainsRune(file.Content, 0) {
		return "application/octet-stream", nil
	}
	return "text/plain; charset=utf-8", nil
}

// Exists reports whether a path is present in the mock filesystem.
func (m *MockFilesystemManager) Exists(path string) bool {
	abs, _ := filepath.Abs(path)
	_, ok := m.files[abs]
	return ok
}

func (m *MockFilesystemManager) infoFor(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time checks
var _ organizer.FilesystemManager = (*MockFilesystemManager)(nil)
var _ organizer.MimeDetector = (*MockFilesystemManager)(nil)
