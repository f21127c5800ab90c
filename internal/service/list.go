package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/store/lists"
	"github.com/qkfdcom/lcqk/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// ListService serves the moderation lists: browsing, edits and bulk transfer.
type ListService struct {
	lists  *lists.Store
	logger *slog.Logger
}

// NewListService creates a new list service.
func NewListService(store *lists.Store, logger *slog.Logger) *ListService {
	return &ListService{lists: store, logger: logger}
}

// ListQuery filters and pages the merged lists.
type ListQuery struct {
	Tier     string // tier name, storage key, or "all"
	Search   string
	Page     int
	PageSize int
}

// ListPage is one page of merged records.
type ListPage struct {
	Items      []domain.UserRecord `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// List merge-reads every tier and returns the filtered page. A violation in
// any tier file fails the whole call.
func (s *ListService) List(ctx context.Context, q ListQuery) (*ListPage, error) {
	tier, err := parseTierOrAll(q.Tier)
	if err != nil {
		return nil, err
	}

	records, err := s.lists.ReadMerged(ctx)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q.Search))

	matched := make([]domain.UserRecord, 0, len(records))
	for _, r := range records {
		if tier != nil && r.Tier != *tier {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(r.Username), needle) &&
			!strings.Contains(fold.String(r.Tag), needle) {
			continue
		}
		matched = append(matched, r)
	}

	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)
	page := max(q.Page, 1)

	totalPages := (len(matched) + size - 1) / size
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))

	return &ListPage{
		Items:      matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

// AddRequest adds a username to a tier, or updates its tag.
type AddRequest struct {
	Username string `json:"username" validate:"username"`
	Tier     string `json:"tier" validate:"required,tier"`
	Tag      string `json:"tag"`
}

// Add appends the username to the tier file or updates its tag.
// It reports whether a new entry was created.
func (s *ListService) Add(ctx context.Context, req AddRequest) (bool, error) {
	if err := validate.Validate(req); err != nil {
		return false, err
	}
	tier, err := parseTier(req.Tier)
	if err != nil {
		return false, err
	}
	username := strings.TrimSpace(req.Username)

	s.warnOtherTiers(ctx, tier, username)

	created, err := s.lists.AddOrUpdate(ctx, tier, username, req.Tag)
	if err != nil {
		return false, err
	}

	s.logger.Info("list entry saved", "tier", tier, "username", username, "created", created)
	return created, nil
}

// warnOtherTiers logs when username is already listed in a different tier.
// Cross-tier duplicates are allowed.
func (s *ListService) warnOtherTiers(ctx context.Context, target domain.Tier, username string) {
	for _, t := range domain.Tiers {
		if t == target {
			continue
		}
		doc, err := s.lists.ReadTier(ctx, t)
		if err != nil {
			return
		}
		for _, e := range doc.Users {
			if e.UserID == username {
				s.logger.Warn("username listed in more than one tier",
					"username", username, "existing_tier", t, "new_tier", target)
				break
			}
		}
	}
}

// EditTag replaces the tag of an existing entry.
func (s *ListService) EditTag(ctx context.Context, tierName, username, tag string) error {
	tier, err := parseTier(tierName)
	if err != nil {
		return err
	}
	found, err := s.lists.UpdateTag(ctx, tier, username, tag)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.NotFoundf("%s is not in the %s list", username, tier)
	}
	return nil
}

// Delete removes one username from a tier.
func (s *ListService) Delete(ctx context.Context, tierName, username string) error {
	tier, err := parseTier(tierName)
	if err != nil {
		return err
	}
	removed, err := s.lists.Remove(ctx, tier, username)
	if err != nil {
		return err
	}
	if removed == 0 {
		return domainerrors.NotFoundf("%s is not in the %s list", username, tier)
	}
	s.logger.Info("list entry removed", "tier", tier, "username", username)
	return nil
}

// BatchDelete removes every listed username from a tier and returns how
// many entries were removed. Unknown usernames are ignored.
func (s *ListService) BatchDelete(ctx context.Context, tierName string, usernames []string) (int, error) {
	tier, err := parseTier(tierName)
	if err != nil {
		return 0, err
	}
	if len(usernames) == 0 {
		return 0, domainerrors.Validation("usernames cannot be empty")
	}
	removed, err := s.lists.RemoveBatch(ctx, tier, usernames)
	if err != nil {
		return 0, err
	}
	s.logger.Info("list entries removed", "tier", tier, "requested", len(usernames), "removed", removed)
	return removed, nil
}

// Export returns one tier document, or every tier keyed by tier name when
// selector is "all".
func (s *ListService) Export(ctx context.Context, selector string) (any, error) {
	tier, err := parseTierOrAll(selector)
	if err != nil {
		return nil, err
	}
	if tier != nil {
		return s.lists.ReadTier(ctx, *tier)
	}

	all := make(map[string]domain.ListDocument, len(domain.Tiers))
	for _, t := range domain.Tiers {
		doc, err := s.lists.ReadTier(ctx, t)
		if err != nil {
			return nil, err
		}
		all[t.String()] = doc
	}
	return all, nil
}

// Import replaces a tier file with the uploaded document. The document must
// match the list schema and every username must be valid; otherwise nothing
// is written.
func (s *ListService) Import(ctx context.Context, tierName string, raw []byte) (int, error) {
	tier, err := parseTier(tierName)
	if err != nil {
		return 0, err
	}

	doc, err := lists.DecodeDocument(raw)
	if err != nil {
		return 0, domainerrors.ValidationWithDetails("invalid list document", map[string]string{"data": err.Error()})
	}

	if bad := validation.CheckInput(doc.Users); len(bad) > 0 {
		violations := domain.NewViolations()
		violations.Add(tier, bad...)
		return 0, domainerrors.ValidationWithDetails("import contains invalid usernames", violations)
	}

	if err := s.lists.ReplaceAll(ctx, tier, doc.Users); err != nil {
		return 0, err
	}

	s.logger.Info("list imported", "tier", tier, "entries", len(doc.Users))
	return len(doc.Users), nil
}

// Revalidate re-reads a list file that changed on disk outside the service
// and returns the entries that would make merged reads fail. Files that
// are not list files are ignored.
func (s *ListService) Revalidate(ctx context.Context, path string) ([]domain.ListEntry, error) {
	name := filepath.Base(path)

	if name == domain.IdentifierFileName {
		_, err := s.lists.LoadIdentifiers(ctx)
		return nil, err
	}

	for _, t := range domain.Tiers {
		if t.FileName() != name {
			continue
		}
		doc, err := s.lists.ReadTier(ctx, t)
		if err != nil {
			s.logger.Error("list file unreadable", "tier", t, "file", name, "error", err)
			return nil, err
		}
		bad := validation.CheckTier(doc.Users)
		if len(bad) > 0 {
			s.logger.Warn("list file contains usernames with Chinese characters",
				"tier", t, "file", name, "entries", bad)
		} else {
			s.logger.Info("list file changed", "tier", t, "entries", len(doc.Users))
		}
		return bad, nil
	}
	return nil, nil
}
