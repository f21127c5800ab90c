package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/qkfdcom/lcqk/internal/domain"
)

// SaveSyncRun records a sync attempt.
func (s *Store) SaveSyncRun(ctx context.Context, run *domain.SyncRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set(syncRunKey(run.StartedAt, run.ID), run)
}

// ListSyncRuns returns sync runs newest first, one page at a time.
func (s *Store) ListSyncRuns(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.SyncRun], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	startAfter, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[*domain.SyncRun]{Items: []*domain.SyncRun{}}
	prefix := []byte(syncRunPrefix)

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the largest key <= seek.
		seek := append([]byte(syncRunPrefix), 0xFF)
		if startAfter != "" {
			seek = []byte(startAfter)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if key == startAfter {
				continue
			}
			if len(result.Items) == params.Limit {
				result.HasMore = true
				break
			}

			var run domain.SyncRun
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				s.logger.Warn("skipping unreadable sync run", "key", key, "error", err)
				continue
			}
			result.Items = append(result.Items, &run)
			result.NextCursor = EncodeCursor(key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.HasMore {
		result.NextCursor = ""
	}
	return result, nil
}
