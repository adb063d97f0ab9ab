// Package covers stores movie cover images sent by the web client as base64
// payloads. Files are named <coverID>_<userID>.<ext> so a user's covers can
// be found by suffix and two movies never share a file.
package covers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/storage"
)

const (
	// NoImageMarker is what the web client sends when no cover was picked.
	NoImageMarker = "null"
	// NoCoverFile is the placeholder image every cover-less movie points to.
	NoCoverFile = "NOCOVERMOVIE.webp"

	defaultFormat = "webp"
)

var (
	dataURLPrefix = regexp.MustCompile(`data:image/([a-zA-Z]+);base64,`)

	userImageExts = []string{"jpg", "jpeg", "png", "webp", "gif"}
)

type Store struct {
	dir   string
	newID func() string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, newID: uuid.NewString}
}

func (s *Store) Dir() string { return s.dir }

// SentinelPath is the path stored for movies without a cover.
func (s *Store) SentinelPath() string {
	return filepath.Join(s.dir, NoCoverFile)
}

// IsSentinel reports whether path is empty or points at the placeholder.
// Paths written on Windows use backslashes, so both separators are accepted.
func IsSentinel(path string) bool {
	if path == "" {
		return true
	}
	p := strings.ReplaceAll(path, `\`, "/")
	return p == NoCoverFile || strings.HasSuffix(p, "/"+NoCoverFile)
}

// Save decodes payload and writes it under the covers directory. The no-image
// marker and empty payloads yield the sentinel path. On failure the returned
// path is empty; callers fall back to the sentinel.
func (s *Store) Save(userID, payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == NoImageMarker {
		return s.SentinelPath(), nil
	}
	if err := storage.ValidKey(userID); err != nil {
		return "", err
	}

	format := defaultFormat
	data := payload
	if m := dataURLPrefix.FindStringSubmatchIndex(payload); m != nil {
		format = strings.ToLower(payload[m[2]:m[3]])
		data = payload[m[1]:]
	}
	if format == "jpeg" {
		format = "jpg"
	}

	raw, err := decode(data)
	if err != nil {
		return "", apperr.Wrap(apperr.BadInput, "covers.save", fmt.Errorf("decode cover: %w", err))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, "covers.save", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.%s", s.newID(), userID, format))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, "covers.save", err)
	}
	return path, nil
}

func decode(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(data); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// Read returns the bytes of the cover at path. The sentinel is served from the
// covers directory when present.
func (s *Store) Read(path string) ([]byte, error) {
	if IsSentinel(path) {
		path = s.SentinelPath()
	} else if err := s.contains(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.New(apperr.NotFound, "covers.read", "cover image not found")
		}
		return nil, apperr.Wrap(apperr.StorageFailure, "covers.read", err)
	}
	return data, nil
}

// Delete removes the cover at path. The sentinel and missing files are left
// alone.
func (s *Store) Delete(path string) error {
	if IsSentinel(path) {
		return nil
	}
	if err := s.contains(path); err != nil {
		return err
	}
	return storage.Remove(path)
}

// PurgeUser removes every cover whose name ends in _<userID>.<ext> and
// returns how many were deleted.
func (s *Store) PurgeUser(userID string) (int, error) {
	if err := storage.ValidKey(userID); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, apperr.Wrap(apperr.StorageFailure, "covers.purge", err)
	}

	removed := 0
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !ownedBy(e.Name(), userID) {
			continue
		}
		if err := storage.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	logging.Debug().Str("user_id", userID).Int("removed", removed).Msg("purged user covers")
	return removed, firstErr
}

// File is a stored cover as seen by List.
type File struct {
	Path    string
	ModTime time.Time
}

// List returns every cover file except the placeholder.
func (s *Store) List() ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageFailure, "covers.list", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == NoCoverFile {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Path: filepath.Join(s.dir, e.Name()), ModTime: info.ModTime()})
	}
	return files, nil
}

func ownedBy(name, userID string) bool {
	for _, ext := range userImageExts {
		if strings.HasSuffix(name, "_"+userID+"."+ext) {
			return true
		}
	}
	return false
}

func (s *Store) contains(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.dir) {
		return apperr.New(apperr.BadInput, "covers", "cover path outside covers directory")
	}
	return nil
}
