// Package storage implements the positional file-I/O abstraction the block
// processor runs on: a reader, a writer, and a directory manager, all
// backed by an afero.Fs so the core can run unmodified over either a real
// filesystem or an in-memory one in tests.
package storage

import (
	"fmt"
	"io"
	"path"

	"github.com/spf13/afero"
)

// Store is a handle to one afero.Fs. It carries no state of its own beyond
// the filesystem reference, so a single Store can back many concurrent
// Readers and Writers.
type Store struct {
	fs afero.Fs
}

// New wraps an existing afero.Fs.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOS returns a Store backed by the real, host filesystem.
func NewOS() *Store {
	return &Store{fs: afero.NewOsFs()}
}

// Reader is an open file positioned for reading, exposing total size and
// positional reads that never move an implicit cursor.
type Reader struct {
	file afero.File
	size int64
}

// OpenReader opens path for reading.
func (s *Store) OpenReader(p string) (*Reader, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return &Reader{file: f, size: info.Size()}, nil
}

// Size returns the file's total byte count.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadAt reads into buf starting at offset. At end-of-file it returns 0
// bytes and no error; a short read past EOF returns whatever remains.
func (r *Reader) ReadAt(offset int64, buf []byte) (int, error) {
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("storage: read: %w", err)
	}
	return n, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Writer is an open file positioned for writing, supporting out-of-order
// positional writes and sparse gaps.
type Writer struct {
	file afero.File
}

// CreateWriter creates (or truncates) path for writing.
func (s *Store) CreateWriter(p string) (*Writer, error) {
	f, err := s.fs.Create(p)
	if err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", p, err)
	}
	return &Writer{file: f}, nil
}

// WriteAt writes data at offset. Writes may land in any order at any
// offset; gaps left behind read back as zero bytes.
func (w *Writer) WriteAt(offset int64, data []byte) error {
	if _, err := w.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("storage: write: %w", err)
	}
	return nil
}

// Flush persists buffered writes.
func (w *Writer) Flush() error {
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("storage: flush: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	return w.file.Close()
}

// CreateDirAll idempotently creates path and any missing parents.
func (s *Store) CreateDirAll(p string) error {
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", p, err)
	}
	return nil
}

// DirExists reports whether path exists and is a directory.
func (s *Store) DirExists(p string) (bool, error) {
	ok, err := afero.DirExists(s.fs, p)
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return ok, nil
}

// CountFiles returns the non-recursive count of regular files under path.
func (s *Store) CountFiles(p string) (int, error) {
	entries, err := afero.ReadDir(s.fs, p)
	if err != nil {
		return 0, fmt.Errorf("storage: readdir %s: %w", p, err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count, nil
}

// ReadFile reads an entire file into memory.
func (s *Store) ReadFile(p string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// WriteFile writes data to path in one call, creating parent directories
// if needed.
func (s *Store) WriteFile(p string, data []byte) error {
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", path.Dir(p), err)
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	return nil
}

// Join joins path segments with the forward-slash separator the symbol
// layout always uses, independent of host OS conventions.
func Join(elem ...string) string {
	return path.Join(elem...)
}
