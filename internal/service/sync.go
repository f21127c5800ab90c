package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/sheets"
	"github.com/qkfdcom/lcqk/internal/store"
	"github.com/qkfdcom/lcqk/internal/store/lists"
	"github.com/qkfdcom/lcqk/internal/validation"
)

// SyncHistory persists sync runs.
type SyncHistory interface {
	SaveSyncRun(ctx context.Context, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.SyncRun], error)
}

// SyncService replaces the tier files with the contents of the source spreadsheet.
type SyncService struct {
	lists         *lists.Store
	fetcher       sheets.RangeFetcher
	spreadsheetID string
	history       SyncHistory
	logger        *slog.Logger
	now           func() time.Time
}

// NewSyncService creates a new sync service. fetcher may be nil when
// spreadsheet credentials are not configured; Sync then refuses to run.
func NewSyncService(
	store *lists.Store,
	fetcher sheets.RangeFetcher,
	spreadsheetID string,
	history SyncHistory,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		lists:         store,
		fetcher:       fetcher,
		spreadsheetID: spreadsheetID,
		history:       history,
		logger:        logger,
		now:           time.Now,
	}
}

// SyncResult reports what a successful sync wrote.
type SyncResult struct {
	RunID      string            `json:"run_id"`
	Counts     domain.TierCounts `json:"counts"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Configured reports whether the spreadsheet source is available.
func (s *SyncService) Configured() bool {
	return s.fetcher != nil && s.spreadsheetID != ""
}

// Sync fetches the three tier ranges concurrently and, only if every fetch
// succeeded and every row is valid, overwrites the three tier files.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.Configured() {
		return nil, domainerrors.PreconditionFailed("Google Sheets credentials are not configured")
	}

	run := &domain.SyncRun{ID: uuid.NewString(), StartedAt: s.now()}
	s.logger.Info("sheet sync started", "run_id", run.ID)

	counts, err := s.sync(ctx)
	run.FinishedAt = s.now()
	run.Counts = counts
	if err != nil {
		run.Status = domain.SyncStatusFailed
		run.Error = err.Error()
		s.record(ctx, run)
		s.logger.Error("sheet sync failed", "run_id", run.ID, "error", err)
		return nil, err
	}

	run.Status = domain.SyncStatusSucceeded
	s.record(ctx, run)
	s.logger.Info("sheet sync finished",
		"run_id", run.ID,
		"normal", counts.Normal,
		"warning", counts.Warning,
		"danger", counts.Danger,
		"duration", run.Duration(),
	)

	return &SyncResult{
		RunID:      run.ID,
		Counts:     counts,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}, nil
}

func (s *SyncService) sync(ctx context.Context) (domain.TierCounts, error) {
	var counts domain.TierCounts

	fetched, err := s.fetchAll(ctx)
	if err != nil {
		return counts, err
	}

	entries := make(map[domain.Tier][]domain.ListEntry, len(domain.Tiers))
	violations := domain.NewViolations()
	total := 0
	for _, t := range domain.Tiers {
		rows := sheets.ParseRows(fetched[t])
		violations.Add(t, validation.CheckInput(rows)...)
		entries[t] = rows
		total += len(rows)
	}

	if !violations.Empty() {
		return counts, domainerrors.ValidationWithDetails("sheet contains usernames with Chinese characters", violations)
	}
	if total == 0 {
		return counts, domainerrors.PreconditionFailed("no data fetched from sheet")
	}

	// Once writing starts, finish all three files.
	writeCtx := context.WithoutCancel(ctx)
	for _, t := range domain.Tiers {
		if err := s.lists.ReplaceAll(writeCtx, t, entries[t]); err != nil {
			return counts, err
		}
		counts.Set(t, len(entries[t]))
	}
	return counts, nil
}

// fetchAll fetches every tier range. All fetches run to completion so the
// error can name each range that failed.
func (s *SyncService) fetchAll(ctx context.Context) (map[domain.Tier][][]string, error) {
	rows := make([][][]string, len(domain.Tiers))
	errs := make([]error, len(domain.Tiers))

	var g errgroup.Group
	for i, t := range domain.Tiers {
		g.Go(func() error {
			rows[i], errs[i] = s.fetcher.FetchRange(ctx, s.spreadsheetID, t.SheetRange())
			return nil
		})
	}
	_ = g.Wait() // errors are collected per range

	var failed []string
	out := make(map[domain.Tier][][]string, len(domain.Tiers))
	for i, t := range domain.Tiers {
		if errs[i] != nil {
			s.logger.Warn("sheet range fetch failed", "range", t.SheetRange(), "error", errs[i])
			failed = append(failed, t.SheetRange())
			continue
		}
		out[t] = rows[i]
	}
	if len(failed) > 0 {
		return nil, domainerrors.SyncFailed("failed to fetch "+strings.Join(failed, ", "), failed)
	}
	return out, nil
}

func (s *SyncService) record(ctx context.Context, run *domain.SyncRun) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveSyncRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to record sync run", "run_id", run.ID, "error", err)
	}
}

// History returns recorded sync runs, newest first.
func (s *SyncService) History(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.SyncRun], error) {
	if s.history == nil {
		return &store.PaginatedResult[*domain.SyncRun]{Items: []*domain.SyncRun{}}, nil
	}
	if _, err := store.DecodeCursor(params.Cursor); err != nil {
		return nil, domainerrors.Validation("invalid history cursor")
	}
	return s.history.ListSyncRuns(ctx, params)
}
