package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// TimestampLayout is the second-resolution format used for creation_date and
// last_modified_date.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	MinNotation = 1
	MaxNotation = 5
)

// ──────────────────── Catalog ────────────────────

type MovieRecord struct {
	ID               int     `json:"id"`
	MovieName        string  `json:"movie_name"`
	YearOfCreation   FlexInt `json:"year_of_creation"`
	Director         string  `json:"director"`
	Category         string  `json:"category"`
	Synopsis         string  `json:"synopsis"`
	Notation         FlexInt `json:"notation"`
	CoverImagePath   string  `json:"cover_image_path,omitempty"`
	CreationDate     string  `json:"creation_date"`
	LastModifiedDate string  `json:"last_modified_date"`
}

// CatalogDocument is the per-user file. NbMovies always equals len(Movies);
// NextID only ever grows.
type CatalogDocument struct {
	NbMovies int           `json:"nb_movies"`
	NextID   int           `json:"next_id"`
	Movies   []MovieRecord `json:"movies"`
}

// CatalogEntry is a record with its cover resolved for the index view.
type CatalogEntry struct {
	MovieRecord
	CoverImageBase64 string `json:"cover_image_base64,omitempty"`
}

// ClampNotation floors n at MinNotation and caps it at MaxNotation.
func ClampNotation(n int) int {
	if n < MinNotation {
		return MinNotation
	}
	if n >= MaxNotation {
		return MaxNotation
	}
	return n
}

// ──────────────────── FlexInt ────────────────────

// FlexInt decodes from a JSON number or a numeric string, since the web forms
// submit every field as text. null decodes to zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*f = 0
		return nil
	}
	n, err := ParseInt(v)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// ParseInt converts form or JSON input to an int. Strings are read as base
// 10 so zero-padded form values keep their decimal meaning. Empty strings and
// fractional numbers are rejected.
func ParseInt(v any) (int, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty value is not a number")
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		return n, nil
	case float64:
		if !isWhole(t) {
			return 0, fmt.Errorf("%v is not a whole number", t)
		}
	case float32:
		if !isWhole(float64(t)) {
			return 0, fmt.Errorf("%v is not a whole number", t)
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	return n, nil
}

func isWhole(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}
