package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func findNames(t *testing.T, m *OSFilesystemManager, dir string, recursive bool) []string {
	t.Helper()
	p, err := m.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", dir, err)
	}
	paths, err := m.FindFiles(p, recursive)
	if err != nil {
		t.Fatalf("FindFiles: %v", err)
	}
	var names []string
	for _, fp := range paths {
		rel, err := filepath.Rel(dir, fp.String())
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		names = append(names, filepath.ToSlash(rel))
	}
	sort.Strings(names)
	return names
}

func TestResolve(t *testing.T) {
	m := NewOSFilesystemManager(nil)

	t.Run("resolves regular file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "a.txt", "hello")

		p, err := m.Resolve(path)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsDir() {
			t.Error("expected regular file, got directory")
		}
		if !filepath.IsAbs(p.String()) {
			t.Errorf("expected absolute path, got %s", p.String())
		}
		if p.Info().Size() != 5 {
			t.Errorf("Size = %d, want 5", p.Info().Size())
		}
	})

	t.Run("resolves directory", func(t *testing.T) {
		dir := t.TempDir()
		p, err := m.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !p.IsDir() {
			t.Error("expected directory")
		}
	})

	t.Run("fails on missing path", func(t *testing.T) {
		if _, err := m.Resolve(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("expected error for missing path")
		}
	})
}

func TestFindFiles(t *testing.T) {
	t.Run("non-recursive skips subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "a")
		writeFile(t, dir, "sub/b.txt", "b")

		m := NewOSFilesystemManager(nil)
		got := findNames(t, m, dir, false)
		want := []string{"a.txt"}
		if len(got) != 1 || got[0] != want[0] {
			t.Errorf("FindFiles = %v, want %v", got, want)
		}
	})

	t.Run("recursive includes subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "a")
		writeFile(t, dir, "sub/b.txt", "b")

		m := NewOSFilesystemManager(nil)
		got := findNames(t, m, dir, true)
		want := []string{"a.txt", "sub/b.txt"}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("FindFiles = %v, want %v", got, want)
		}
	})

	t.Run("applies configured ignore patterns", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "a")
		writeFile(t, dir, "debug.log", "x")

		m := NewOSFilesystemManager([]string{"*.log"})
		got := findNames(t, m, dir, true)
		if len(got) != 1 || got[0] != "a.txt" {
			t.Errorf("FindFiles = %v, want [a.txt]", got)
		}
	})

	t.Run("applies forgignore file and excludes it", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "a")
		writeFile(t, dir, "b.tmp", "b")
		writeFile(t, dir, ".forgignore", "*.tmp\n")

		m := NewOSFilesystemManager(nil)
		got := findNames(t, m, dir, true)
		if len(got) != 1 || got[0] != "a.txt" {
			t.Errorf("FindFiles = %v, want [a.txt]", got)
		}
	})

	t.Run("ignored directory pruned during recursion", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "a")
		writeFile(t, dir, "node_modules/pkg/index.js", "x")

		m := NewOSFilesystemManager([]string{"node_modules"})
		got := findNames(t, m, dir, true)
		if len(got) != 1 || got[0] != "a.txt" {
			t.Errorf("FindFiles = %v, want [a.txt]", got)
		}
	})
}

func TestMoveFile(t *testing.T) {
	m := NewOSFilesystemManager(nil)

	t.Run("moves to new location", func(t *testing.T) {
		dir := t.TempDir()
		srcPath := writeFile(t, dir, "a.txt", "hello")
		src, err := m.Resolve(srcPath)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}

		dst := filepath.Join(dir, "dest", "a.txt")
		if err := m.CreateDirectory(filepath.Dir(dst)); err != nil {
			t.Fatalf("CreateDirectory: %v", err)
		}
		final, err := m.MoveFile(src, dst)
		if err != nil {
			t.Fatalf("MoveFile: %v", err)
		}
		if final != dst {
			t.Errorf("final path = %s, want %s", final, dst)
		}
		if _, err := os.Stat(srcPath); !os.IsNotExist(err) {
			t.Error("source still exists after move")
		}
		data, err := os.ReadFile(final)
		if err != nil || string(data) != "hello" {
			t.Errorf("destination content = %q, err = %v", data, err)
		}
	})

	t.Run("renames on collision", func(t *testing.T) {
		dir := t.TempDir()
		srcPath := writeFile(t, dir, "a.txt", "new")
		writeFile(t, dir, "dest/a.txt", "old")
		src, err := m.Resolve(srcPath)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}

		dst := filepath.Join(dir, "dest", "a.txt")
		final, err := m.MoveFile(src, dst)
		if err != nil {
			t.Fatalf("MoveFile: %v", err)
		}
		if final == dst {
			t.Error("expected collision rename, got original destination")
		}
		if !strings.HasSuffix(final, ".txt") {
			t.Errorf("renamed file lost extension: %s", final)
		}
		// Original must be untouched.
		data, _ := os.ReadFile(dst)
		if string(data) != "old" {
			t.Errorf("existing file content = %q, want %q", data, "old")
		}
		moved, _ := os.ReadFile(final)
		if string(moved) != "new" {
			t.Errorf("moved file content = %q, want %q", moved, "new")
		}
	})
}

func TestTimestampedName(t *testing.T) {
	ts := time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)
	got := timestampedName(filepath.Join("d", "notes.txt"), ts)
	want := filepath.Join("d", "notes_20240131_154500.txt")
	if got != want {
		t.Errorf("timestampedName = %q, want %q", got, want)
	}

	got = timestampedName("noext", ts)
	if got != "noext_20240131_154500" {
		t.Errorf("timestampedName = %q, want %q", got, "noext_20240131_154500")
	}
}

func TestRemove(t *testing.T) {
	m := NewOSFilesystemManager(nil)

	t.Run("removes regular file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "a.txt", "x")
		if err := m.Remove(path); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("file still exists")
		}
	})

	t.Run("refuses directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := m.Remove(dir); err == nil {
			t.Error("expected error removing directory")
		}
	})
}

func TestDetectMimeType(t *testing.T) {
	m := NewOSFilesystemManager(nil)
	dir := t.TempDir()

	path := writeFile(t, dir, "a.txt", "plain text content\n")
	p, err := m.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	mt, err := m.DetectMimeType(p)
	if err != nil {
		t.Fatalf("DetectMimeType: %v", err)
	}
	if !strings.HasPrefix(mt, "text/plain") {
		t.Errorf("mime type = %q, want text/plain prefix", mt)
	}

	// PNG magic bytes
	png := writeFile(t, dir, "img.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pp, err := m.Resolve(png)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	mt, err = m.DetectMimeType(pp)
	if err != nil {
		t.Fatalf("DetectMimeType: %v", err)
	}
	if mt != "image/png" {
		t.Errorf("mime type = %q, want image/png", mt)
	}
}
