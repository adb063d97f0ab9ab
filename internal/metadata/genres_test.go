package metadata

import (
	"reflect"
	"testing"
)

func TestResolveGenreIDs(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []int
	}{
		{"case-insensitive dedup", []string{"Horreur", "horreur", "DOES-NOT-EXIST"}, []int{27}},
		{"keeps input order", []string{"western", "Action", "drame"}, []int{37, 28, 18}},
		{"nothing matches", []string{"Kaiju"}, []int{}},
		{"empty input", nil, []int{}},
		{"trims spaces", []string{" Science-Fiction "}, []int{878}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveGenreIDs(tt.names); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenreName(t *testing.T) {
	if name, ok := GenreName(35); !ok || name != "Comedie" {
		t.Fatalf("GenreName(35) = %q, %v", name, ok)
	}
	if _, ok := GenreName(1); ok {
		t.Fatal("GenreName(1) should be unknown")
	}
}

func TestGenresIsACopy(t *testing.T) {
	g := Genres()
	g[0].Name = "changed"
	if name, _ := GenreName(g[0].ID); name == "changed" {
		t.Fatal("Genres exposed the table")
	}
	if len(g) != 20 {
		t.Fatalf("len = %d", len(g))
	}
}
