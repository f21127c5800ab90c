package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/store"
	"github.com/qkfdcom/lcqk/internal/store/lists"
)

// StoreHandle wraps the state store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the Badger state store for sync history and the TOTP secret.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Data.StatePath, log.WithComponent("store"))
	if err != nil {
		return nil, err
	}

	log.Info("State store initialized", "path", cfg.Data.StatePath)
	return &StoreHandle{Store: db}, nil
}

// ProvideListStore provides the tier file store. The data directory is
// created on first boot.
func ProvideListStore(i do.Injector) (*lists.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	log.Info("List store ready", "path", cfg.Data.Path)
	return lists.New(cfg.Data.Path, log.WithComponent("lists")), nil
}
