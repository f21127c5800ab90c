package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/metadata/xapi"
	"github.com/qkfdcom/lcqk/internal/sheets"
)

// LookupClientHandle wraps the X lookup client with shutdown capability.
type LookupClientHandle struct {
	*xapi.Client
}

// Shutdown implements do.Shutdownable.
func (h *LookupClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideLookupClient provides the X user lookup client. It is always
// created; without a bearer token it reports itself as not configured.
func ProvideLookupClient(i do.Injector) (*LookupClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := xapi.New(xapi.Config{
		BaseURL:     cfg.Lookup.BaseURL,
		BearerToken: cfg.Lookup.BearerToken,
		MaxAttempts: cfg.Lookup.MaxAttempts,
		BaseDelay:   cfg.Lookup.BaseDelay,
		BatchSize:   cfg.Lookup.BatchSize,
		BatchPause:  cfg.Lookup.BatchPause,
	}, log.WithComponent("xapi"))

	if !client.Configured() {
		log.Warn("X_BEARER_TOKEN not set, identifier lookups are disabled")
	}
	return &LookupClientHandle{Client: client}, nil
}

// SheetsHandle holds the spreadsheet fetcher, nil when credentials are missing.
type SheetsHandle struct {
	Fetcher sheets.RangeFetcher
}

// ProvideSheets provides the Google Sheets fetcher.
func ProvideSheets(i do.Injector) (*SheetsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Sheets.Configured() {
		log.Warn("Google Sheets credentials not set, sync is disabled")
		return &SheetsHandle{}, nil
	}

	fetcher, err := sheets.NewGoogleFetcher(context.Background(), sheets.Credentials{
		ClientEmail: cfg.Sheets.ClientEmail,
		PrivateKey:  cfg.Sheets.PrivateKey,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Google Sheets fetcher ready", "spreadsheet_id", cfg.Sheets.SpreadsheetID)
	return &SheetsHandle{Fetcher: fetcher}, nil
}
