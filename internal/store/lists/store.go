// Package lists persists the three tier files and the identifier cache as
// JSON documents in a single data directory.
//
// Each call re-reads from disk; no state is cached between calls. Writes to
// one file are serialized within the process and land atomically.
package lists

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/validation"
)

// Store reads and writes the list files under one directory.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	// One lock per file name; the set of files is fixed.
	locks map[string]*sync.Mutex
}

// New creates a Store rooted at dir. The directory is not created here;
// reads fail fast when it is missing.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	locks := make(map[string]*sync.Mutex, len(domain.Tiers)+1)
	for _, t := range domain.Tiers {
		locks[t.FileName()] = &sync.Mutex{}
	}
	locks[domain.IdentifierFileName] = &sync.Mutex{}

	return &Store{
		dir:    dir,
		logger: logger,
		now:    time.Now,
		locks:  locks,
	}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of the tier's file.
func (s *Store) Path(t domain.Tier) string {
	return filepath.Join(s.dir, t.FileName())
}

// TierExists reports whether the tier file is present on disk.
func (s *Store) TierExists(t domain.Tier) bool {
	_, err := os.Stat(s.Path(t))
	return err == nil
}

// ReadMerged returns every record across the tiers in merge order.
//
// Missing tier files are created empty. If any stored username fails
// validation, no records are returned and the error carries the offending
// entries grouped by tier storage key.
func (s *Store) ReadMerged(ctx context.Context) ([]domain.UserRecord, error) {
	if err := s.checkDir(); err != nil {
		return nil, err
	}

	docs := make(map[domain.Tier]domain.ListDocument, len(domain.Tiers))
	violations := domain.NewViolations()
	for _, t := range domain.Tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.ReadTier(ctx, t)
		if err != nil {
			return nil, err
		}
		violations.Add(t, validation.CheckTier(doc.Users)...)
		docs[t] = doc
	}

	if !violations.Empty() {
		s.logger.Warn("list files contain invalid usernames", "count", violations.Count())
		return nil, domainerrors.ValidationWithDetails(
			"list files contain usernames with Chinese characters", violations)
	}

	ids, err := s.LoadIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var records []domain.UserRecord
	for _, t := range domain.Tiers {
		for _, e := range docs[t].Users {
			records = append(records, domain.UserRecord{
				ExternalID: ids[e.UserID],
				Username:   e.UserID,
				Tag:        e.Tag,
				Tier:       t,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}
	if records == nil {
		records = []domain.UserRecord{}
	}
	return records, nil
}

// ReadTier returns the raw document for one tier, creating it empty if missing.
func (s *Store) ReadTier(_ context.Context, t domain.Tier) (domain.ListDocument, error) {
	if err := s.checkDir(); err != nil {
		return domain.ListDocument{}, err
	}
	mu := s.locks[t.FileName()]
	mu.Lock()
	defer mu.Unlock()
	return s.readTierLocked(t)
}

// AddOrUpdate appends a new entry or replaces the tag of an existing one.
// It reports whether a new entry was created.
func (s *Store) AddOrUpdate(ctx context.Context, t domain.Tier, username, tag string) (bool, error) {
	if !validation.IsValidUserID(username) {
		return false, domainerrors.Validationf("invalid username %q", username)
	}

	created := false
	err := s.mutateTier(ctx, t, func(doc *domain.ListDocument) bool {
		for i := range doc.Users {
			if doc.Users[i].UserID == username {
				doc.Users[i].Tag = tag
				return true
			}
		}
		doc.Users = append(doc.Users, domain.ListEntry{UserID: username, Tag: tag})
		created = true
		return true
	})
	return created, err
}

// UpdateTag changes the tag of an existing entry. Unknown usernames leave the
// file untouched and report false.
func (s *Store) UpdateTag(ctx context.Context, t domain.Tier, username, tag string) (bool, error) {
	found := false
	err := s.mutateTier(ctx, t, func(doc *domain.ListDocument) bool {
		for i := range doc.Users {
			if doc.Users[i].UserID == username {
				doc.Users[i].Tag = tag
				found = true
			}
		}
		return found
	})
	return found, err
}

// Remove deletes the entry for username and returns how many were removed.
func (s *Store) Remove(ctx context.Context, t domain.Tier, username string) (int, error) {
	return s.RemoveBatch(ctx, t, []string{username})
}

// RemoveBatch deletes every entry whose username is in usernames.
// When nothing matches the file is not rewritten.
func (s *Store) RemoveBatch(ctx context.Context, t domain.Tier, usernames []string) (int, error) {
	drop := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		drop[u] = struct{}{}
	}

	removed := 0
	err := s.mutateTier(ctx, t, func(doc *domain.ListDocument) bool {
		kept := doc.Users[:0]
		for _, e := range doc.Users {
			if _, ok := drop[e.UserID]; ok {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		doc.Users = kept
		return removed > 0
	})
	return removed, err
}

// ReplaceAll overwrites the tier file with entries. The data directory is
// created if needed since bulk replace is how a fresh install is seeded.
func (s *Store) ReplaceAll(ctx context.Context, t domain.Tier, entries []domain.ListEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if entries == nil {
		entries = []domain.ListEntry{}
	}

	mu := s.locks[t.FileName()]
	mu.Lock()
	defer mu.Unlock()

	if err := s.writeJSON(t.FileName(), domain.ListDocument{Users: entries}); err != nil {
		return err
	}
	s.logger.Debug("tier replaced", "tier", t, "count", len(entries))
	return nil
}

// LoadIdentifiers returns the username to external ID cache, creating the
// cache file empty if missing.
func (s *Store) LoadIdentifiers(_ context.Context) (map[string]string, error) {
	if err := s.checkDir(); err != nil {
		return nil, err
	}
	mu := s.locks[domain.IdentifierFileName]
	mu.Lock()
	defer mu.Unlock()
	return s.loadIdentifiersLocked()
}

// MergeIdentifiers adds mappings to the cache and returns how many keys were
// new. Existing keys not present in mappings are always kept.
func (s *Store) MergeIdentifiers(ctx context.Context, mappings map[string]string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.checkDir(); err != nil {
		return 0, err
	}
	mu := s.locks[domain.IdentifierFileName]
	mu.Lock()
	defer mu.Unlock()

	ids, err := s.loadIdentifiersLocked()
	if err != nil {
		return 0, err
	}
	if len(mappings) == 0 {
		return 0, nil
	}

	added := 0
	for username, externalID := range mappings {
		if _, ok := ids[username]; !ok {
			added++
		}
		ids[username] = externalID
	}

	if err := s.writeJSON(domain.IdentifierFileName, domain.IdentifierDocument{Users: ids}); err != nil {
		return 0, err
	}
	return added, nil
}

// mutateTier loads a tier, applies fn and writes the result back when fn
// reports a change.
func (s *Store) mutateTier(ctx context.Context, t domain.Tier, fn func(*domain.ListDocument) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkDir(); err != nil {
		return err
	}
	mu := s.locks[t.FileName()]
	mu.Lock()
	defer mu.Unlock()

	doc, err := s.readTierLocked(t)
	if err != nil {
		return err
	}
	if !fn(&doc) {
		return nil
	}
	return s.writeJSON(t.FileName(), doc)
}

func (s *Store) readTierLocked(t domain.Tier) (domain.ListDocument, error) {
	raw, err := os.ReadFile(s.Path(t))
	if errors.Is(err, fs.ErrNotExist) {
		empty := domain.ListDocument{Users: []domain.ListEntry{}}
		if err := s.writeJSON(t.FileName(), empty); err != nil {
			return domain.ListDocument{}, err
		}
		s.logger.Info("created missing tier file", "tier", t, "file", t.FileName())
		return empty, nil
	}
	if err != nil {
		return domain.ListDocument{}, fmt.Errorf("read %s: %w", t.FileName(), err)
	}

	doc, err := DecodeDocument(raw)
	if err != nil {
		return domain.ListDocument{}, domainerrors.StoreCorruptedf(err, "%s is not a valid list file", t.FileName())
	}
	return doc, nil
}

func (s *Store) loadIdentifiersLocked() (map[string]string, error) {
	path := filepath.Join(s.dir, domain.IdentifierFileName)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.writeJSON(domain.IdentifierFileName, domain.IdentifierDocument{Users: map[string]string{}}); err != nil {
			return nil, err
		}
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", domain.IdentifierFileName, err)
	}

	var doc domain.IdentifierDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domainerrors.StoreCorruptedf(err, "%s is not a valid identifier cache", domain.IdentifierFileName)
	}
	if doc.Users == nil {
		doc.Users = map[string]string{}
	}
	return doc.Users, nil
}

// writeJSON writes v with two-space indentation via temp file and rename.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := atomic.WriteFile(filepath.Join(s.dir, name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *Store) checkDir() error {
	info, err := os.Stat(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return domainerrors.PreconditionFailedf("data directory %s does not exist", s.dir)
	}
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return domainerrors.PreconditionFailedf("data path %s is not a directory", s.dir)
	}
	return nil
}
