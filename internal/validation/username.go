package validation

import (
	"strings"

	"github.com/qkfdcom/lcqk/internal/domain"
)

// CJK Unified Ideographs block accepted by the list format as "Chinese".
const (
	cjkFirst = '一'
	cjkLast  = '龥'
)

// ContainsCJK reports whether s contains any rune in U+4E00..U+9FA5.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if r >= cjkFirst && r <= cjkLast {
			return true
		}
	}
	return false
}

// ValidateUsername reports whether a stored username is acceptable.
// Only CJK ideographs are rejected; empty strings and other scripts pass.
func ValidateUsername(username string) bool {
	return !ContainsCJK(username)
}

// IsValidUserID is the stricter check applied to new input:
// it additionally rejects blank usernames.
func IsValidUserID(username string) bool {
	return strings.TrimSpace(username) != "" && ValidateUsername(username)
}

// CheckTier returns the entries whose username fails ValidateUsername,
// in their original order.
func CheckTier(entries []domain.ListEntry) []domain.ListEntry {
	return filter(entries, ValidateUsername)
}

// CheckInput is like CheckTier but applies IsValidUserID.
func CheckInput(entries []domain.ListEntry) []domain.ListEntry {
	return filter(entries, IsValidUserID)
}

func filter(entries []domain.ListEntry, valid func(string) bool) []domain.ListEntry {
	var bad []domain.ListEntry
	for _, e := range entries {
		if !valid(e.UserID) {
			bad = append(bad, e)
		}
	}
	return bad
}
