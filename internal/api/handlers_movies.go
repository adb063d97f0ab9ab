package api

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/auth"
	"github.com/JustinTDCT/Videotheque/internal/httputil"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

type addMovieRequest struct {
	MovieName      string         `json:"movie_name" validate:"required"`
	YearOfCreation models.FlexInt `json:"year_of_creation" validate:"required"`
	Director       string         `json:"director"`
	Category       string         `json:"category"`
	Synopsis       string         `json:"synopsis"`
	Notation       models.FlexInt `json:"notation"`
	CoverImage     string         `json:"cover_image"`
}

type deleteMovieRequest struct {
	MovieID models.FlexInt `json:"movieId" validate:"required"`
}

type editMovieRequest struct {
	MovieID    models.FlexInt `json:"movieId" validate:"required"`
	FieldName  string         `json:"fieldName" validate:"required"`
	FieldValue any            `json:"fieldValue"`
}

type catalogIndex struct {
	NbMovies int                   `json:"nb_movies"`
	Movies   []models.CatalogEntry `json:"movies"`
}

type catalogSummary struct {
	NbMovies int                  `json:"nb_movies"`
	Movies   []models.MovieRecord `json:"movies"`
}

func userID(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.UserID
	}
	return ""
}

// handleMoviesIndex returns the catalog with every cover inlined as base64.
func (s *Server) handleMoviesIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := s.catalog.ListAll(userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, catalogIndex{
		NbMovies: doc.NbMovies,
		Movies:   s.catalog.WithCovers(doc),
	})
}

// handleMoviesSummary returns the catalog without cover paths.
func (s *Server) handleMoviesSummary(w http.ResponseWriter, r *http.Request) {
	doc, err := s.catalog.ListAll(userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	movies := make([]models.MovieRecord, len(doc.Movies))
	for i, m := range doc.Movies {
		m.CoverImagePath = ""
		movies[i] = m
	}
	httputil.WriteJSON(w, http.StatusOK, catalogSummary{NbMovies: doc.NbMovies, Movies: movies})
}

func (s *Server) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var req addMovieRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	coverPath, err := s.covers.Save(uid, req.CoverImage)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("cover not saved, using placeholder")
		coverPath = s.covers.SentinelPath()
	}

	id, err := s.catalog.Append(uid, models.MovieRecord{
		MovieName:      req.MovieName,
		YearOfCreation: req.YearOfCreation,
		Director:       req.Director,
		Category:       req.Category,
		Synopsis:       req.Synopsis,
		Notation:       req.Notation,
		CoverImagePath: coverPath,
	})
	if err != nil {
		if delErr := s.covers.Delete(coverPath); delErr != nil {
			hlog.FromRequest(r).Warn().Err(delErr).Str("cover", coverPath).Msg("orphan cover left behind")
		}
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	var req deleteMovieRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	res, err := s.catalog.DeleteByID(userID(r), int(req.MovieID))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	resp := map[string]any{"movie_id": res.MovieID}
	if res.CoverErr != nil {
		resp["cover_cleanup_error"] = apperr.Message(res.CoverErr)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEditMovie(w http.ResponseWriter, r *http.Request) {
	var req editMovieRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	if err := s.catalog.EditField(userID(r), int(req.MovieID), req.FieldName, req.FieldValue); err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"movie_id": int(req.MovieID),
		"field":    req.FieldName,
	})
}
