package metadata

import (
	"strings"

	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

// genreTable maps TMDB movie genre ids to the names shown in the catalog.
// Order matters for reverse lookups.
var genreTable = []models.Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Aventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedie"},
	{ID: 18, Name: "Drame"},
	{ID: 878, Name: "Science-fiction"},
	{ID: 27, Name: "Horreur"},
	{ID: 14, Name: "Fantaisie"},
	{ID: 53, Name: "Thriller"},
	{ID: 10749, Name: "Romance"},
	{ID: 99, Name: "Documentaire"},
	{ID: 80, Name: "Crime"},
	{ID: 9648, Name: "Mystere"},
	{ID: 10752, Name: "Guerre"},
	{ID: 36, Name: "Historique"},
	{ID: 10402, Name: "Musique"},
	{ID: 10751, Name: "Familial"},
	{ID: 10770, Name: "Sport"},
	{ID: 100, Name: "Biographie"},
	{ID: 37, Name: "Western"},
}

var genreByID = func() map[int]string {
	m := make(map[int]string, len(genreTable))
	for _, g := range genreTable {
		m[g.ID] = g.Name
	}
	return m
}()

const horrorGenreID = 27

func GenreName(id int) (string, bool) {
	name, ok := genreByID[id]
	return name, ok
}

// Genres returns a copy of the genre table.
func Genres() []models.Genre {
	out := make([]models.Genre, len(genreTable))
	copy(out, genreTable)
	return out
}

// ResolveGenreIDs looks names up case-insensitively. The result keeps input
// order, holds each id once and skips names with no match, so it may be
// shorter than names or empty.
func ResolveGenreIDs(names []string) []int {
	ids := make([]int, 0, len(names))
	seen := make(map[int]bool, len(names))
	for _, name := range names {
		id, ok := lookupGenre(name)
		if !ok {
			logging.Debug().Str("genre", name).Msg("unknown genre name")
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func lookupGenre(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for _, g := range genreTable {
		if strings.EqualFold(g.Name, name) {
			return g.ID, true
		}
	}
	return 0, false
}
