// Package sink provides destinations for generated binding files.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// OutputSink receives generated file content.
// Implementations must be safe for concurrent calls.
type OutputSink interface {
	// WriteFile stores content under the relative, slash-separated path.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FilesystemSink writes files below a root directory.
type FilesystemSink struct {
	// Root is the base directory for all writes.
	Root string

	// Mode is the file permission mode (default: 0644).
	Mode os.FileMode

	// Overwrite replaces existing files. When false an existing file is an error.
	Overwrite bool
}

// NewFilesystemSink returns a sink writing below root that overwrites
// existing files.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{
		Root:      root,
		Mode:      0644,
		Overwrite: true,
	}
}

// WriteFile writes content to path below Root.
// Parent directories are created as needed. The file is written to a
// temporary name in the same directory and moved into place, so readers
// never observe a partially written binding.
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tempPath, err := s.writeTemp(dir, content)
	if err != nil {
		return err
	}
	// Removing an already renamed temp file fails harmlessly.
	defer os.Remove(tempPath)

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tempPath, fullPath); err != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		return nil
	}

	// os.Link fails if the target exists, with no window between check and create.
	if err := os.Link(tempPath, fullPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("file already exists: %q", path)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// resolve joins path to Root and rejects results outside of Root.
func (s *FilesystemSink) resolve(path string) (string, error) {
	fullPath := filepath.Join(s.Root, filepath.FromSlash(path))

	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory: %q", path)
	}
	return fullPath, nil
}

// writeTemp writes content to a new temporary file in dir with the sink's
// mode and returns its name. On failure nothing is left behind.
func (s *FilesystemSink) writeTemp(dir string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".crgen-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	_, writeErr := f.Write(content)
	closeErr := f.Close()
	switch {
	case writeErr != nil:
		err = fmt.Errorf("failed to write temp file: %w", writeErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if err == nil {
		mode := s.Mode
		if mode == 0 {
			mode = 0644
		}
		if chmodErr := os.Chmod(name, mode); chmodErr != nil {
			err = fmt.Errorf("failed to set file mode: %w", chmodErr)
		}
	}
	if err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// MemorySink keeps generated files in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under path.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = clone(content)
	return nil
}

// Files returns a copy of every stored file.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]byte, len(s.files))
	for path, content := range s.files {
		result[path] = clone(content)
	}
	return result
}

// Paths returns the stored paths in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Get returns a copy of the file at path, or nil if it was never written.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.files[path]
	if !ok {
		return nil
	}
	return clone(content)
}

// Reset removes all stored files.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]byte)
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// WriterSink streams every file to a single io.Writer, such as stdout.
// When Header is set, each file is preceded by a line produced by Header.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	Header func(path string) string
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// WriteFile writes content to the underlying writer.
func (s *WriterSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Header != nil {
		if _, err := io.WriteString(s.w, s.Header(path)+"\n"); err != nil {
			return fmt.Errorf("failed to write header for %q: %w", path, err)
		}
	}
	if _, err := s.w.Write(content); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}

// ValidatePath checks that path is a clean, relative, slash-separated path
// with no parent directory components.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return errors.New("absolute paths not allowed")
	}
	// Windows drive letters are rejected on every platform.
	if len(path) >= 2 && path[1] == ':' && isASCIILetter(path[0]) {
		return errors.New("absolute paths not allowed")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.New("path traversal not allowed")
		}
	}

	slashed := filepath.ToSlash(path)
	if cleaned := filepath.ToSlash(filepath.Clean(slashed)); cleaned != slashed {
		return fmt.Errorf("path is not clean (expected %q, got %q)", cleaned, path)
	}
	return nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
