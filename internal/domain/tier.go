package domain

import (
	"fmt"
	"strings"
)

// Tier is the risk classification of a tracked username.
type Tier string

const (
	// TierNormal marks accounts with no known risk.
	TierNormal Tier = "normal"
	// TierWarning marks accounts under watch. Stored as the "yellow" list.
	TierWarning Tier = "warning"
	// TierDanger marks accounts known to be harmful. Stored as the "black" list.
	TierDanger Tier = "danger"
)

// Tiers lists every tier in merge order. Reads and writes that span all
// tiers iterate this slice so output ordering stays deterministic.
var Tiers = []Tier{TierNormal, TierWarning, TierDanger}

// Storage keys used in file names, sheet names and violation reports.
const (
	StorageKeyNormal = "normal"
	StorageKeyYellow = "yellow"
	StorageKeyBlack  = "black"
)

var tierToStorageKey = map[Tier]string{
	TierNormal:  StorageKeyNormal,
	TierWarning: StorageKeyYellow,
	TierDanger:  StorageKeyBlack,
}

var storageKeyToTier = map[string]Tier{
	StorageKeyNormal: TierNormal,
	StorageKeyYellow: TierWarning,
	StorageKeyBlack:  TierDanger,
}

// IdentifierFileName is the on-disk name of the username to external ID cache.
const IdentifierFileName = "twitter_ids.json"

// ParseTier accepts either a tier name or its storage key, case-insensitive.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t := Tier(s); t.Valid() {
		return t, nil
	}
	if t, ok := storageKeyToTier[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// TierFromStorageKey maps an on-disk key back to its tier.
func TierFromStorageKey(key string) (Tier, bool) {
	t, ok := storageKeyToTier[key]
	return t, ok
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	_, ok := tierToStorageKey[t]
	return ok
}

// StorageKey returns the key used on disk for this tier.
func (t Tier) StorageKey() string {
	return tierToStorageKey[t]
}

// FileName returns the tier's list file name, e.g. "yellow_list.json".
func (t Tier) FileName() string {
	return t.StorageKey() + "_list.json"
}

// SheetRange returns the A1 range holding this tier in the source spreadsheet.
// Row 1 is a header; column A is the username and column B the tag.
func (t Tier) SheetRange() string {
	return t.StorageKey() + "_list!A2:B"
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}
