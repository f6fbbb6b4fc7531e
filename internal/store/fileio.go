// Package store provides the small file IO helpers shared by the key pair
// and session stores. Writes are atomic so a crash never leaves a
// half-written file behind.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// ErrNotExist is returned by ReadJSON when the file is absent.
var ErrNotExist = os.ErrNotExist

// ReadJSON reads path into out. A missing file surfaces as ErrNotExist so
// callers can distinguish "no state yet" from corruption.
func ReadJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// WriteJSON writes v as JSON via a temp file then rename.
func WriteJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFile(path, b, mode)
}

// WriteFile writes bytes to a temp file in the target directory, then
// atomically replaces the target.
func WriteFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Remove deletes path; a missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
