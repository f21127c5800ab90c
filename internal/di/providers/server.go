package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/api"
	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		List:       do.MustInvoke[*service.ListService](i),
		Identifier: do.MustInvoke[*service.IdentifierService](i),
		Sync:       do.MustInvoke[*service.SyncService](i),
	}

	handler := api.NewServer(services, api.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		DataDir:        cfg.Data.Path,
		State:          storeHandle.Store,
	}, log.WithComponent("api"))

	srv := handler.HTTPServer(":"+cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
