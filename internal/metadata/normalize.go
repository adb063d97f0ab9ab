package metadata

import (
	"github.com/goccy/go-json"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

type tmdbMovie struct {
	ID            int             `json:"id"`
	Runtime       *int            `json:"runtime"`
	OriginalTitle string          `json:"original_title"`
	GenreIDs      []int           `json:"genre_ids"`
	Genres        []models.Genre  `json:"genres"`
	VoteAverage   *float64        `json:"vote_average"`
	Overview      string          `json:"overview"`
	ReleaseDate   string          `json:"release_date"`
	PosterPath    *string         `json:"poster_path"`
	BackdropPath  *string         `json:"backdrop_path"`
	Creators      json.RawMessage `json:"creators"`
}

type tmdbList struct {
	Results []tmdbMovie `json:"results"`
}

// NormalizeList projects a search or discover response. A body without a
// results array yields an empty list.
func NormalizeList(raw []byte) ([]models.NormalizedMovie, error) {
	var list tmdbList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "metadata.normalize", err)
	}
	out := make([]models.NormalizedMovie, 0, len(list.Results))
	for _, m := range list.Results {
		out = append(out, project(m))
	}
	return out, nil
}

// NormalizeOne projects a single movie detail response.
func NormalizeOne(raw []byte) (*models.NormalizedMovie, error) {
	var m tmdbMovie
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "metadata.normalize", err)
	}
	n := project(m)
	return &n, nil
}

func project(m tmdbMovie) models.NormalizedMovie {
	n := models.NormalizedMovie{
		ID:          m.ID,
		Runtime:     m.Runtime,
		Title:       m.OriginalTitle,
		UserRating:  m.VoteAverage,
		Synopsis:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Genres:      genreNames(m),
	}
	if m.PosterPath != nil {
		n.CoverPhoto = *m.PosterPath
	}
	if m.BackdropPath != nil {
		n.BackgroundImage = *m.BackdropPath
	}
	if len(m.Creators) > 0 && string(m.Creators) != "null" {
		n.Creators = m.Creators
	}
	return n
}

// genreNames maps list-style genre_ids through the table, dropping unknown
// ids. Detail responses carry genre objects instead; the table name wins over
// the provider's when both exist.
func genreNames(m tmdbMovie) []string {
	names := make([]string, 0, len(m.GenreIDs)+len(m.Genres))
	if len(m.GenreIDs) > 0 {
		for _, id := range m.GenreIDs {
			if name, ok := GenreName(id); ok {
				names = append(names, name)
			}
		}
		return names
	}
	for _, g := range m.Genres {
		if name, ok := GenreName(g.ID); ok {
			names = append(names, name)
		} else if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}
