package docstore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// JSONStorage keeps the snapshot in one JSON file, rewritten atomically on
// every Write.
type JSONStorage struct {
	path string
}

// OpenJSON returns a storage for the JSON file at path. The file must exist
// unless create is set, in which case an empty snapshot is written.
func OpenJSON(path string, create bool) (*JSONStorage, error) {
	if err := ensureFile(path, create); err != nil {
		return nil, err
	}
	s := &JSONStorage{path: path}
	if create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := s.Write(Data{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Path returns the data file path.
func (s *JSONStorage) Path() string { return s.path }

// Read parses the data file.
func (s *JSONStorage) Read() (Data, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return Decode(b)
}

// Write replaces the data file using the temp-file, fsync, rename pattern.
func (s *JSONStorage) Write(data Data) error {
	b, err := Encode(data)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return writeAtomic(s.path, b)
}

// Close is a no-op; the file is not held open between writes.
func (s *JSONStorage) Close() error { return nil }

func ensureFile(path string, create bool) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", types.ErrStorage, err)
	case !create:
		return fmt.Errorf("%w: data file %s does not exist: %w", types.ErrStorage, path, fs.ErrNotExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating data directory: %v", types.ErrStorage, err)
	}
	return nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".slate-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
