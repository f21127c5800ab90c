// Package di provides dependency injection configuration for the LCQK server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/auth"
	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/di/providers"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/store/lists"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideListStore)

	// Upstream clients
	do.Provide(injector, providers.ProvideLookupClient)
	do.Provide(injector, providers.ProvideSheets)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvidePasswordVerifier)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideListService)
	do.Provide(injector, providers.ProvideIdentifierService)
	do.Provide(injector, providers.ProvideSyncService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*lists.Store](injector)
	_ = do.MustInvoke[*providers.LookupClientHandle](injector)
	_ = do.MustInvoke[*providers.SheetsHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.PasswordVerifier](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ListService](injector)
	_ = do.MustInvoke[*service.IdentifierService](injector)
	_ = do.MustInvoke[*service.SyncService](injector)

	// Workers
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
