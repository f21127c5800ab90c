package providers

import (
	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/auth"
	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/store/lists"
)

// ProvideAuthService provides the operator authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	password := do.MustInvoke[*auth.PasswordVerifier](i)

	return service.NewAuthService(password, tokens, storeHandle.Store, cfg.Auth.TOTPIssuer, log.WithComponent("auth")), nil
}

// ProvideListService provides the list service.
func ProvideListService(i do.Injector) (*service.ListService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*lists.Store](i)

	return service.NewListService(store, log.WithComponent("list")), nil
}

// ProvideIdentifierService provides the identifier resolution service.
func ProvideIdentifierService(i do.Injector) (*service.IdentifierService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*lists.Store](i)
	client := do.MustInvoke[*LookupClientHandle](i)

	return service.NewIdentifierService(store, client.Client, log.WithComponent("identifier")), nil
}

// ProvideSyncService provides the spreadsheet sync service.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*lists.Store](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sheetsHandle := do.MustInvoke[*SheetsHandle](i)

	return service.NewSyncService(
		store,
		sheetsHandle.Fetcher,
		cfg.Sheets.SpreadsheetID,
		storeHandle.Store,
		log.WithComponent("sync"),
	), nil
}
