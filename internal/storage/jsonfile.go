// Package storage reads and writes the flat JSON documents the service keeps
// on disk. Writes are atomic: data lands in a temp file in the same directory
// and is renamed over the target.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
)

// ReadJSON decodes the document at path into v. A missing file is reported as
// apperr.NotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.Wrap(apperr.NotFound, "storage.read", err)
		}
		return apperr.Wrap(apperr.StorageFailure, "storage.read", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.StorageFailure, "storage.decode", fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

// WriteJSON replaces the document at path with v, indented by four spaces.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, "storage.encode", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.StorageFailure, "storage.write", err)
	}
	return nil
}

// Remove deletes the file at path. A file that is already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.StorageFailure, "storage.remove", err)
	}
	return nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ValidKey rejects keys that would escape the data directory when used in a
// file name.
func ValidKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) || strings.ContainsRune(key, 0) {
		return apperr.New(apperr.BadInput, "storage", "invalid document key")
	}
	return nil
}
