package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/qkfdcom/lcqk/internal/logger"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/watcher"
)

// FileWatcherHandle wraps the file watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// listFileNames are the files the watcher reports on.
func listFileNames() []string {
	names := make([]string, 0, len(domain.Tiers)+1)
	for _, t := range domain.Tiers {
		names = append(names, t.FileName())
	}
	return append(names, domain.IdentifierFileName)
}

// ProvideFileWatcher provides the watcher that re-validates list files
// edited outside the server.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	listService := do.MustInvoke[*service.ListService](i)

	if !cfg.Data.WatchFiles {
		log.Info("File watcher disabled")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(log.WithComponent("watcher"), watcher.Options{Match: listFileNames()})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Data.Path); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Removed files are recreated empty on the next read; nothing to check.
	go w.Run(ctx, func(ctx context.Context, event watcher.Event) {
		if event.Type == watcher.EventRemoved {
			log.Warn("list file removed", "path", event.Path)
			return
		}
		if _, err := listService.Revalidate(ctx, event.Path); err != nil {
			log.Warn("failed to revalidate list file", "path", event.Path, "error", err)
		}
	})

	log.Info("File watcher started", "path", cfg.Data.Path)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
