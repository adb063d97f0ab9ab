package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
)

type doc struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	in := doc{Count: 2, Names: []string{"Alien", "Heat"}}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out doc
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Count != 2 || len(out.Names) != 2 || out.Names[1] != "Heat" {
		t.Fatalf("got %+v", out)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	var out doc
	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestReadCorruptIsStorageFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	var out doc
	err := ReadJSON(path, &out)
	if !errors.Is(err, apperr.ErrStorageFailure) {
		t.Fatalf("expected StorageFailure, got %v", err)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "gone.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("user-1")
			v := counter
			v++
			counter = v
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if n := km.size(); n != 0 {
		t.Fatalf("lock entries leaked: %d", n)
	}
}

func TestValidKey(t *testing.T) {
	for _, ok := range []string{"6f1c2d3e-aaaa-bbbb-cccc-0123456789ab", "user_1"} {
		if err := ValidKey(ok); err != nil {
			t.Errorf("ValidKey(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "../x", `a\b`, "a/b", "x.json"} {
		if err := ValidKey(bad); !errors.Is(err, apperr.ErrBadInput) {
			t.Errorf("ValidKey(%q) = %v, want BadInput", bad, err)
		}
	}
}
