// Package main prints a summary of the list files and the sync history.
//
// Usage:
//
//	DATA_PATH=~/lcqk/data go run ./cmd/dbinspect
//
// The server must be stopped; the state store is opened read-only.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/store/lists"
	"github.com/qkfdcom/lcqk/internal/validation"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/lcqk/data")
	}
	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = filepath.Join(dataPath, "state")
	}

	fmt.Println("=== List Inspection ===")
	fmt.Println()

	inspectLists(dataPath)

	fmt.Println()
	fmt.Println("=== Sync History ===")
	fmt.Println()

	inspectSyncRuns(statePath)
}

func inspectLists(dataPath string) {
	ctx := context.Background()
	store := lists.New(dataPath, slog.New(slog.DiscardHandler))

	ids, err := store.LoadIdentifiers(ctx)
	if err != nil {
		log.Fatalf("Failed to read identifier cache: %v", err)
	}

	total := 0
	for _, t := range domain.Tiers {
		doc, err := store.ReadTier(ctx, t)
		if err != nil {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeStoreCorrupted {
				fmt.Printf("%-8s %s is corrupted: %v\n", t, t.FileName(), err)
				continue
			}
			log.Fatalf("Failed to read %s: %v", t.FileName(), err)
		}

		resolved := 0
		for _, e := range doc.Users {
			if _, ok := ids[e.UserID]; ok {
				resolved++
			}
		}
		total += len(doc.Users)

		fmt.Printf("%-8s %5d entries, %5d with cached IDs\n", t, len(doc.Users), resolved)
		if bad := validation.CheckTier(doc.Users); len(bad) > 0 {
			fmt.Printf("         %d invalid:\n", len(bad))
			for _, e := range bad {
				fmt.Printf("           %q (tag %q)\n", e.UserID, e.Tag)
			}
		}
	}

	fmt.Println()
	fmt.Printf("Total entries:     %d\n", total)
	fmt.Printf("Cached identifiers: %d\n", len(ids))
}

func inspectSyncRuns(statePath string) {
	opts := badger.DefaultOptions(statePath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		fmt.Printf("State store not available: %v\n", err)
		return
	}
	defer db.Close()

	prefix := []byte("syncrun:")
	runs := 0
	failed := 0

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var run domain.SyncRun
				if err := json.Unmarshal(val, &run); err != nil {
					return err
				}

				runs++
				if run.Status == domain.SyncStatusFailed {
					failed++
				}
				fmt.Printf("%s  %-9s  normal=%d warning=%d danger=%d  %s\n",
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Status,
					run.Counts.Normal,
					run.Counts.Warning,
					run.Counts.Danger,
					run.Error,
				)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to read sync runs: %v", err)
	}

	fmt.Println()
	fmt.Printf("Runs: %d (%d failed)\n", runs, failed)
}
