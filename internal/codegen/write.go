package codegen

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a file the file system refused.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// File is one generated source file.
type File struct {
	Name    string
	Content []byte
}

// WriteFiles creates dir if needed and writes files in order, overwriting
// existing ones. With atomic set, each file goes through a temporary file in
// dir and a rename; the set of files is never written as a unit.
func WriteFiles(dir string, files []File, atomic bool) ([]string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, 0, &WriteError{Path: dir, Err: err}
	}

	var written []string
	var total int64
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		var err error
		if atomic {
			err = writeAtomic(dir, path, f.Content)
		} else {
			err = os.WriteFile(path, f.Content, 0o644)
		}
		if err != nil {
			return written, total, &WriteError{Path: path, Err: err}
		}
		written = append(written, path)
		total += int64(len(f.Content))
	}
	return written, total, nil
}

func writeAtomic(dir, path string, content []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
