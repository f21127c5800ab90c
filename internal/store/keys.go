package store

import (
	"fmt"
	"time"
)

// Key layout:
//
//	auth:totp                          -> domain.TOTPSecret
//	syncrun:<unix nanos, 20 digits>:<id> -> domain.SyncRun
const (
	totpKey       = "auth:totp"
	syncRunPrefix = "syncrun:"
)

// syncRunKey sorts lexically by start time so iteration order is chronological.
func syncRunKey(startedAt time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", syncRunPrefix, startedAt.UnixNano(), id)
}
