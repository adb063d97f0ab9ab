// Package catalog keeps one JSON document per user holding that user's movie
// collection. Every mutation is a read-modify-write of the whole document
// under the user's lock.
package catalog

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
	"github.com/JustinTDCT/Videotheque/internal/storage"
)

// Editable field names accepted by EditField.
const (
	FieldMovieName      = "movie_name"
	FieldYearOfCreation = "year_of_creation"
	FieldDirector       = "director"
	FieldCategory       = "category"
	FieldSynopsis       = "synopsis"
	FieldNotation       = "notation"
)

var fieldAliases = map[string]string{
	"rating": FieldNotation,
}

var editableFields = map[string]bool{
	FieldMovieName:      true,
	FieldYearOfCreation: true,
	FieldDirector:       true,
	FieldCategory:       true,
	FieldSynopsis:       true,
	FieldNotation:       true,
}

type Store struct {
	dir    string
	covers *covers.Store
	locks  *storage.KeyedMutex
	now    func() time.Time
}

func NewStore(dir string, coverStore *covers.Store) *Store {
	return &Store{
		dir:    dir,
		covers: coverStore,
		locks:  storage.NewKeyedMutex(),
		now:    time.Now,
	}
}

// DeleteResult reports a removed movie. CoverErr is set when the record was
// removed but its cover file could not be.
type DeleteResult struct {
	MovieID   int    `json:"movie_id"`
	CoverPath string `json:"-"`
	CoverErr  error  `json:"-"`
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, "movies_"+userID+".json")
}

func (s *Store) load(userID string) (*models.CatalogDocument, error) {
	if err := storage.ValidKey(userID); err != nil {
		return nil, err
	}
	var doc models.CatalogDocument
	if err := storage.ReadJSON(s.path(userID), &doc); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "catalog", "catalog not found")
		}
		return nil, err
	}
	if doc.Movies == nil {
		doc.Movies = []models.MovieRecord{}
	}
	doc.NbMovies = len(doc.Movies)

	// Documents written before next_id existed: continue past every id in use.
	if doc.NextID <= 0 {
		next := doc.NbMovies
		for _, m := range doc.Movies {
			if m.ID > next {
				next = m.ID
			}
		}
		doc.NextID = next + 1
	}
	return &doc, nil
}

func (s *Store) save(userID string, doc *models.CatalogDocument) error {
	doc.NbMovies = len(doc.Movies)
	return storage.WriteJSON(s.path(userID), doc)
}

func (s *Store) timestamp() string {
	return s.now().Format(models.TimestampLayout)
}

// Init writes an empty catalog for userID.
func (s *Store) Init(userID string) error {
	if err := storage.ValidKey(userID); err != nil {
		return err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.save(userID, &models.CatalogDocument{NextID: 1, Movies: []models.MovieRecord{}})
}

// Drop removes userID's catalog document. A missing document is not an error.
func (s *Store) Drop(userID string) error {
	if err := storage.ValidKey(userID); err != nil {
		return err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	return storage.Remove(s.path(userID))
}

func (s *Store) ListAll(userID string) (*models.CatalogDocument, error) {
	return s.load(userID)
}

// Append stores rec under the next id and returns that id. A missing catalog
// is created.
func (s *Store) Append(userID string, rec models.MovieRecord) (int, error) {
	if err := storage.ValidKey(userID); err != nil {
		return 0, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	doc, err := s.load(userID)
	if errors.Is(err, apperr.ErrNotFound) {
		doc = &models.CatalogDocument{NextID: 1, Movies: []models.MovieRecord{}}
	} else if err != nil {
		return 0, err
	}

	now := s.timestamp()
	rec.ID = doc.NextID
	rec.Notation = models.FlexInt(models.ClampNotation(int(rec.Notation)))
	rec.CreationDate = now
	rec.LastModifiedDate = now
	if rec.CoverImagePath == "" {
		rec.CoverImagePath = s.covers.SentinelPath()
	}

	doc.NextID++
	doc.Movies = append(doc.Movies, rec)
	if err := s.save(userID, doc); err != nil {
		return 0, err
	}

	logging.Debug().Str("user_id", userID).Int("movie_id", rec.ID).Msg("movie appended")
	return rec.ID, nil
}

// DeleteByID removes the movie and then its cover. A cover that cannot be
// removed does not fail the call; it is reported in the result.
func (s *Store) DeleteByID(userID string, movieID int) (*DeleteResult, error) {
	if err := storage.ValidKey(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(doc, movieID)
	if idx < 0 {
		return nil, apperr.New(apperr.NotFound, "catalog.delete", fmt.Sprintf("movie %d not found", movieID))
	}

	removed := doc.Movies[idx]
	doc.Movies = append(doc.Movies[:idx:idx], doc.Movies[idx+1:]...)
	if err := s.save(userID, doc); err != nil {
		return nil, err
	}

	res := &DeleteResult{MovieID: movieID, CoverPath: removed.CoverImagePath}
	if err := s.covers.Delete(removed.CoverImagePath); err != nil {
		res.CoverErr = err
		logging.Warn().Err(err).Str("user_id", userID).Int("movie_id", movieID).Msg("cover cleanup failed")
	}
	return res, nil
}

// EditField overwrites one field of a movie and bumps last_modified_date.
// notation is clamped to [1, 5].
func (s *Store) EditField(userID string, movieID int, field string, value any) error {
	field = strings.TrimSpace(field)
	if alias, ok := fieldAliases[field]; ok {
		field = alias
	}
	if !editableFields[field] {
		return apperr.New(apperr.BadInput, "catalog.edit", fmt.Sprintf("field %q cannot be edited", field))
	}
	if err := storage.ValidKey(userID); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	doc, err := s.load(userID)
	if err != nil {
		return err
	}
	idx := indexOf(doc, movieID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "catalog.edit", fmt.Sprintf("movie %d not found", movieID))
	}

	rec := &doc.Movies[idx]
	switch field {
	case FieldMovieName:
		rec.MovieName = cast.ToString(value)
	case FieldDirector:
		rec.Director = cast.ToString(value)
	case FieldCategory:
		rec.Category = cast.ToString(value)
	case FieldSynopsis:
		rec.Synopsis = cast.ToString(value)
	case FieldYearOfCreation:
		n, err := models.ParseInt(value)
		if err != nil {
			return apperr.Wrap(apperr.BadInput, "catalog.edit", err)
		}
		rec.YearOfCreation = models.FlexInt(n)
	case FieldNotation:
		n, err := models.ParseInt(value)
		if err != nil {
			return apperr.Wrap(apperr.BadInput, "catalog.edit", err)
		}
		rec.Notation = models.FlexInt(models.ClampNotation(n))
	}
	rec.LastModifiedDate = s.timestamp()

	return s.save(userID, doc)
}

// WithCovers attaches each movie's cover as base64. Unreadable covers are
// logged and left empty.
func (s *Store) WithCovers(doc *models.CatalogDocument) []models.CatalogEntry {
	entries := make([]models.CatalogEntry, 0, len(doc.Movies))
	for _, m := range doc.Movies {
		entry := models.CatalogEntry{MovieRecord: m}
		data, err := s.covers.Read(m.CoverImagePath)
		switch {
		case err == nil:
			entry.CoverImageBase64 = base64.StdEncoding.EncodeToString(data)
		case covers.IsSentinel(m.CoverImagePath) && errors.Is(err, apperr.ErrNotFound):
		default:
			logging.Warn().Err(err).Int("movie_id", m.ID).Msg("cover unavailable")
		}
		entries = append(entries, entry)
	}
	return entries
}

func indexOf(doc *models.CatalogDocument, movieID int) int {
	for i, m := range doc.Movies {
		if m.ID == movieID {
			return i
		}
	}
	return -1
}
