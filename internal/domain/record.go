package domain

import "time"

// ListEntry is the stored form of one username inside a tier file.
// The user_id field holds the username; the numeric platform ID lives in the
// identifier cache.
type ListEntry struct {
	UserID string `json:"user_id"`
	Tag    string `json:"tag"`
}

// ListDocument is the body of a tier file.
type ListDocument struct {
	Users []ListEntry `json:"users"`
}

// IdentifierDocument is the body of the identifier cache file.
type IdentifierDocument struct {
	Users map[string]string `json:"users"`
}

// UserRecord is one tracked identity as returned by a merged read.
type UserRecord struct {
	ExternalID string    `json:"userid"` // Empty when not yet resolved
	Username   string    `json:"username"`
	Tag        string    `json:"tag"`
	Tier       Tier      `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // Stamped at read time, not persisted
	UpdatedAt  time.Time `json:"updated_at"`
}

// Violations groups invalid entries by tier storage key. Entries keep their
// tag so the operator can locate the row.
// All three keys are always present so callers can render them uniformly.
type Violations map[string][]ListEntry

// NewViolations returns an empty violation report with every tier key present.
func NewViolations() Violations {
	v := make(Violations, len(Tiers))
	for _, t := range Tiers {
		v[t.StorageKey()] = []ListEntry{}
	}
	return v
}

// Add records invalid entries under the given tier.
func (v Violations) Add(t Tier, entries ...ListEntry) {
	v[t.StorageKey()] = append(v[t.StorageKey()], entries...)
}

// Empty reports whether no violations were recorded.
func (v Violations) Empty() bool {
	for _, entries := range v {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// Count returns the total number of violations across all tiers.
func (v Violations) Count() int {
	n := 0
	for _, entries := range v {
		n += len(entries)
	}
	return n
}
