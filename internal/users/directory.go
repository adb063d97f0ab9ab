// Package users keeps the account directory in a single users.json document
// keyed by user id.
package users

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/auth"
	"github.com/JustinTDCT/Videotheque/internal/catalog"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
	"github.com/JustinTDCT/Videotheque/internal/storage"
)

const usersFile = "users.json"

// missHash stands in for the stored hash when no account matches, so an
// unknown email costs the same bcrypt comparison as a wrong password.
var missHash = sync.OnceValue(func() string {
	h, err := auth.HashPassword("no-such-account")
	if err != nil {
		logging.Error().Err(err).Msg("failed to prepare login hash")
		return ""
	}
	return h
})

var checkPassword = auth.CheckPassword

// storedUser is the on-disk entry. The id is the map key.
type storedUser struct {
	FirstName    string `json:"first_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

type Directory struct {
	path        string
	catalog     *catalog.Store
	covers      *covers.Store
	minPassword int
	complexPass bool

	mu    sync.Mutex
	newID func() string
}

func NewDirectory(dataDir string, cat *catalog.Store, cov *covers.Store, minPasswordLength int, requireComplexPassword bool) *Directory {
	return &Directory{
		path:        filepath.Join(dataDir, usersFile),
		catalog:     cat,
		covers:      cov,
		minPassword: minPasswordLength,
		complexPass: requireComplexPassword,
		newID:       func() string { return uuid.New().String() },
	}
}

func (d *Directory) load() (map[string]storedUser, error) {
	all := map[string]storedUser{}
	if err := storage.ReadJSON(d.path, &all); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return map[string]storedUser{}, nil
		}
		return nil, err
	}
	return all, nil
}

func (d *Directory) save(all map[string]storedUser) error {
	return storage.WriteJSON(d.path, all)
}

func findByEmail(all map[string]storedUser, email string) (string, storedUser, bool) {
	for id, u := range all {
		if u.Email == email {
			return id, u, true
		}
	}
	return "", storedUser{}, false
}

func toRecord(id string, u storedUser) *models.UserRecord {
	return &models.UserRecord{
		ID:           id,
		FirstName:    u.FirstName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}
}

// Register creates an account and its empty catalog. The email is compared
// after normalization.
func (d *Directory) Register(email, password, firstName string) (*models.UserRecord, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.New(apperr.BadInput, "register", "email is required")
	}
	if err := auth.ValidatePassword(password, d.minPassword, d.complexPass); err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "register", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, "register", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.load()
	if err != nil {
		return nil, err
	}
	if _, _, ok := findByEmail(all, email); ok {
		return nil, apperr.New(apperr.Conflict, "register", "email already registered")
	}

	id := d.newID()
	entry := storedUser{FirstName: firstName, Email: email, PasswordHash: hash}
	all[id] = entry
	if err := d.save(all); err != nil {
		return nil, err
	}

	if err := d.catalog.Init(id); err != nil {
		delete(all, id)
		if rbErr := d.save(all); rbErr != nil {
			logging.Error().Err(rbErr).Str("user_id", id).Msg("rollback of registration failed")
		}
		return nil, err
	}

	logging.Info().Str("user_id", id).Msg("user registered")
	return toRecord(id, entry), nil
}

// Authenticate returns the account for email when password matches. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (d *Directory) Authenticate(email, password string) (*models.UserRecord, error) {
	email = auth.NormalizeEmail(email)

	d.mu.Lock()
	all, err := d.load()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	id, u, ok := findByEmail(all, email)
	hash := u.PasswordHash
	if !ok {
		hash = missHash()
	}
	if !checkPassword(hash, password) || !ok {
		return nil, apperr.New(apperr.Unauthorized, "login", "invalid email or password")
	}
	return toRecord(id, u), nil
}

func (d *Directory) Get(userID string) (*models.UserRecord, error) {
	d.mu.Lock()
	all, err := d.load()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	u, ok := all[userID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "users", "user not found")
	}
	return toRecord(userID, u), nil
}

// List returns every account ordered by email.
func (d *Directory) List() ([]models.UserRecord, error) {
	d.mu.Lock()
	all, err := d.load()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]models.UserRecord, 0, len(all))
	for id, u := range all {
		out = append(out, *toRecord(id, u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// DeleteUser removes the account, then its catalog and covers. It reports
// false when no such account exists. Cleanup failures after the entry is gone
// are returned with deleted set to true.
func (d *Directory) DeleteUser(userID string) (bool, error) {
	d.mu.Lock()
	all, err := d.load()
	if err != nil {
		d.mu.Unlock()
		return false, err
	}
	if _, ok := all[userID]; !ok {
		d.mu.Unlock()
		return false, nil
	}
	delete(all, userID)
	err = d.save(all)
	d.mu.Unlock()
	if err != nil {
		return false, err
	}

	var errs []error
	if err := d.catalog.Drop(userID); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("failed to drop catalog")
		errs = append(errs, err)
	}
	n, err := d.covers.PurgeUser(userID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("failed to purge covers")
		errs = append(errs, err)
	}

	logging.Info().Str("user_id", userID).Int("covers_removed", n).Msg("user deleted")
	if len(errs) > 0 {
		return true, apperr.Wrap(apperr.StorageFailure, "delete user", errors.Join(errs...))
	}
	return true, nil
}
