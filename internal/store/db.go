package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Options tunes how a store touches the disk.
type Options struct {
	// SyncWrites fsyncs after every write or append.
	SyncWrites bool

	writeLine func(f *os.File, line []byte) error
}

func writeWhole(f *os.File, line []byte) error {
	_, err := f.Write(line)
	return err
}

// ensureFile creates path and its parent directory when missing. An existing
// file is left untouched.
func ensureFile(path string) error {
	if path == "" {
		return errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// syncedWriteFile writes data to a temp file in the target directory and
// renames it over path, so readers see either the old or the new content.
func syncedWriteFile(path string, data []byte, perm os.FileMode, sync bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if sync {
		if err := tmp.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}

func statFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ioError("stat", path, err)
	}
	if info.IsDir() {
		return ioError("stat", path, errors.New("is a directory"))
	}
	return nil
}
