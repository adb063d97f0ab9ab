package models

import "github.com/goccy/go-json"

// ──────────────────── Metadata ────────────────────

// NormalizedMovie is a provider movie projected onto the catalog's field names.
type NormalizedMovie struct {
	ID              int             `json:"id"`
	Runtime         *int            `json:"runtime,omitempty"`
	Title           string          `json:"title,omitempty"`
	Genres          []string        `json:"genres"`
	UserRating      *float64        `json:"user_rating,omitempty"`
	Synopsis        string          `json:"synopsis,omitempty"`
	ReleaseDate     string          `json:"release_date,omitempty"`
	CoverPhoto      string          `json:"cover_photo,omitempty"`
	BackgroundImage string          `json:"background_image,omitempty"`
	Creators        json.RawMessage `json:"creators,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
