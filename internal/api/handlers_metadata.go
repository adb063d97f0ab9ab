package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/httputil"
	"github.com/JustinTDCT/Videotheque/internal/metadata"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

type searchMode int

const (
	searchByName searchMode = iota + 1
	searchByCategory
	searchByYear
)

var searchModes = map[string]searchMode{
	"1":        searchByName,
	"name":     searchByName,
	"2":        searchByCategory,
	"category": searchByCategory,
	"3":        searchByYear,
	"year":     searchByYear,
}

var quickLists = map[string]func(Discovery, context.Context) ([]models.NormalizedMovie, error){
	"1":           Discovery.Horror,
	"horror":      Discovery.Horror,
	"2":           Discovery.Popular,
	"popular":     Discovery.Popular,
	"3":           Discovery.NowPlaying,
	"now_playing": Discovery.NowPlaying,
}

// handleMetadataSearch dispatches on mode: a title, a JSON array of genre
// names, or a release year.
func (s *Server) handleMetadataSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, ok := searchModes[strings.ToLower(strings.TrimSpace(q.Get("mode")))]
	if !ok {
		writeErr(w, r, fmt.Errorf("%w %q", errUnknownMode, q.Get("mode")))
		return
	}
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeErr(w, r, apperr.New(apperr.BadInput, "", "query is required"))
		return
	}

	var (
		results []models.NormalizedMovie
		err     error
	)
	switch mode {
	case searchByName:
		results, err = s.discovery.SearchByName(r.Context(), query)
	case searchByCategory:
		var names []string
		if jerr := json.Unmarshal([]byte(query), &names); jerr != nil {
			writeErr(w, r, apperr.New(apperr.BadInput, "", "category query must be a JSON array of genre names"))
			return
		}
		results, err = s.discovery.DiscoverByGenres(r.Context(), names)
	case searchByYear:
		year, perr := strconv.Atoi(query)
		if perr != nil {
			writeErr(w, r, apperr.New(apperr.BadInput, "", "year must be an integer"))
			return
		}
		results, err = s.discovery.DiscoverByYear(r.Context(), year)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (s *Server) handleMetadataMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		writeErr(w, r, apperr.New(apperr.BadInput, "", "id must be a positive integer"))
		return
	}

	movie, err := s.discovery.Details(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, movie)
}

func (s *Server) handleMetadataQuick(w http.ResponseWriter, r *http.Request) {
	list, ok := quickLists[strings.ToLower(strings.TrimSpace(r.URL.Query().Get("list")))]
	if !ok {
		writeErr(w, r, apperr.New(apperr.BadInput, "", "list must be horror, popular or now_playing"))
		return
	}

	results, err := list(s.discovery, r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (s *Server) handleMetadataGenres(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, metadata.Genres())
}
