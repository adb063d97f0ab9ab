package users

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/catalog"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/models"
	"github.com/JustinTDCT/Videotheque/internal/storage"
)

type fixture struct {
	dir     *Directory
	catalog *catalog.Store
	covers  *covers.Store
	dataDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	cov := covers.NewStore(filepath.Join(dataDir, "covers"))
	cat := catalog.NewStore(dataDir, cov)
	return &fixture{
		dir:     NewDirectory(dataDir, cat, cov, 6, false),
		catalog: cat,
		covers:  cov,
		dataDir: dataDir,
	}
}

func TestRegisterCreatesEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	u, err := f.dir.Register(" Alice@Example.com ", "password1", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" || u.Email != "alice@example.com" || u.FirstName != "Alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "password1" {
		t.Fatal("password stored in clear")
	}

	doc, err := f.catalog.ListAll(u.ID)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if doc.NbMovies != 0 || len(doc.Movies) != 0 {
		t.Fatalf("catalog not empty: %+v", doc)
	}
}

func TestRegisterPersistsKeyedByID(t *testing.T) {
	f := newFixture(t)
	u, err := f.dir.Register("bob@example.com", "password1", "Bob")
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]map[string]string
	if err := storage.ReadJSON(filepath.Join(f.dataDir, "users.json"), &raw); err != nil {
		t.Fatal(err)
	}
	entry, ok := raw[u.ID]
	if !ok {
		t.Fatalf("users.json not keyed by id: %v", raw)
	}
	if entry["email"] != "bob@example.com" || entry["first_name"] != "Bob" || entry["password_hash"] == "" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	first, err := f.dir.Register("alice@example.com", "password1", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.dir.Register("ALICE@example.com", "password2", "Other")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}

	got, err := f.dir.Authenticate("alice@example.com", "password1")
	if err != nil {
		t.Fatalf("first user broken: %v", err)
	}
	if got.ID != first.ID || got.FirstName != "Alice" {
		t.Fatalf("first user changed: %+v", got)
	}
	all, _ := f.dir.List()
	if len(all) != 1 {
		t.Fatalf("users = %d", len(all))
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.dir.Register("", "password1", "x"); !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("empty email: %v", err)
	}
	if _, err := f.dir.Register("a@b.c", "123", "x"); !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("short password: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	u, _ := f.dir.Register("alice@example.com", "password1", "Alice")

	got, err := f.dir.Authenticate("  ALICE@example.com", "password1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("got %+v, err %v", got, err)
	}

	for _, tc := range [][2]string{
		{"alice@example.com", "wrong"},
		{"nobody@example.com", "password1"},
	} {
		if _, err := f.dir.Authenticate(tc[0], tc[1]); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("%v: err = %v", tc, err)
		}
	}
}

func TestAuthenticateUnknownEmailStillComparesHash(t *testing.T) {
	f := newFixture(t)
	f.dir.Register("alice@example.com", "password1", "Alice")

	var hashes []string
	orig := checkPassword
	checkPassword = func(hash, password string) bool {
		hashes = append(hashes, hash)
		return orig(hash, password)
	}
	t.Cleanup(func() { checkPassword = orig })

	if _, err := f.dir.Authenticate("nobody@example.com", "no-such-account"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if len(hashes) != 1 || hashes[0] == "" {
		t.Fatalf("bcrypt comparisons = %q", hashes)
	}
}

func TestRegisterComplexPasswordPolicy(t *testing.T) {
	dataDir := t.TempDir()
	cov := covers.NewStore(filepath.Join(dataDir, "covers"))
	cat := catalog.NewStore(dataDir, cov)
	dir := NewDirectory(dataDir, cat, cov, 6, true)

	if _, err := dir.Register("a@example.com", "password", "A"); !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("simple password: %v", err)
	}
	if _, err := dir.Register("a@example.com", "Passw0rd", "A"); err != nil {
		t.Fatalf("complex password: %v", err)
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	u, _ := f.dir.Register("alice@example.com", "password1", "Alice")

	got, err := f.dir.Get(u.ID)
	if err != nil || got.Email != "alice@example.com" {
		t.Fatalf("got %+v, err %v", got, err)
	}
	if _, err := f.dir.Get("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.dir.Register("alice@example.com", "password1", "Alice")
	bob, _ := f.dir.Register("bob@example.com", "password1", "Bob")

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	alicePath, err := f.covers.Save(alice.ID, payload)
	if err != nil {
		t.Fatal(err)
	}
	bobPath, err := f.covers.Save(bob.ID, payload)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.catalog.Append(alice.ID, models.MovieRecord{MovieName: "Heat", CoverImagePath: alicePath}); err != nil {
		t.Fatal(err)
	}

	deleted, err := f.dir.DeleteUser(alice.ID)
	if err != nil || !deleted {
		t.Fatalf("deleted=%v err=%v", deleted, err)
	}

	if _, err := f.catalog.ListAll(alice.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("catalog still present: %v", err)
	}
	if _, err := os.Stat(alicePath); !os.IsNotExist(err) {
		t.Fatalf("cover still present: %v", err)
	}
	if _, err := os.Stat(bobPath); err != nil {
		t.Fatalf("other user's cover removed: %v", err)
	}
	if _, err := f.dir.Authenticate("alice@example.com", "password1"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("authenticate after delete: %v", err)
	}
	if _, err := f.dir.Authenticate("bob@example.com", "password1"); err != nil {
		t.Fatalf("bob: %v", err)
	}
}

func TestDeleteUnknownUser(t *testing.T) {
	f := newFixture(t)
	deleted, err := f.dir.DeleteUser("nobody")
	if err != nil || deleted {
		t.Fatalf("deleted=%v err=%v", deleted, err)
	}
}

func TestConcurrentRegistrations(t *testing.T) {
	f := newFixture(t)
	emails := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"}

	var wg sync.WaitGroup
	for _, e := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			if _, err := f.dir.Register(email, "password1", "n"); err != nil {
				t.Errorf("register %s: %v", email, err)
			}
		}(e)
	}
	wg.Wait()

	all, err := f.dir.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(emails) {
		t.Fatalf("users = %d, want %d", len(all), len(emails))
	}
}
