// Package scheduler runs background maintenance over the data directory.
package scheduler

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/catalog"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

// UserLister enumerates the accounts whose catalogs are scanned.
type UserLister interface {
	List() ([]models.UserRecord, error)
}

// CoverSweeper periodically removes cover files that no catalog references.
// Files younger than the grace period are kept so a cover saved just before
// its movie is appended is never taken.
type CoverSweeper struct {
	users    UserLister
	catalog  *catalog.Store
	covers   *covers.Store
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewCoverSweeper(users UserLister, cat *catalog.Store, cov *covers.Store, interval, grace time.Duration) *CoverSweeper {
	return &CoverSweeper{
		users:    users,
		catalog:  cat,
		covers:   cov,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *CoverSweeper) Start() {
	go s.run()
	logging.Info().Dur("interval", s.interval).Dur("grace", s.grace).Msg("cover sweeper started")
}

// Stop ends the loop and waits for a sweep in progress to finish.
func (s *CoverSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *CoverSweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				logging.Error().Err(err).Msg("cover sweep failed")
			}
		case <-s.stop:
			logging.Info().Msg("cover sweeper stopped")
			return
		}
	}
}

// Sweep deletes unreferenced covers older than the grace period and returns
// how many were removed.
func (s *CoverSweeper) Sweep() (int, error) {
	referenced, err := s.referenced()
	if err != nil {
		return 0, err
	}

	files, err := s.covers.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, f := range files {
		if referenced[filepath.Base(f.Path)] || f.ModTime.After(cutoff) {
			continue
		}
		if err := s.covers.Delete(f.Path); err != nil {
			logging.Warn().Err(err).Str("cover", f.Path).Msg("orphan cover not removed")
			continue
		}
		removed++
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("orphan covers removed")
	}
	return removed, nil
}

// referenced collects the file names of every cover a catalog points to.
func (s *CoverSweeper) referenced() (map[string]bool, error) {
	accounts, err := s.users.List()
	if err != nil {
		return nil, err
	}

	refs := make(map[string]bool)
	for _, u := range accounts {
		doc, err := s.catalog.ListAll(u.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, m := range doc.Movies {
			if m.CoverImagePath != "" {
				refs[filepath.Base(filepath.FromSlash(m.CoverImagePath))] = true
			}
		}
	}
	return refs, nil
}
