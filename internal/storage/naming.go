package storage

import (
	"fmt"
	"strings"
)

// Stored names embed the access code so that a directory scan alone can tell
// which files belong to the service: <code>_<name> for plain uploads and
// <code>_<unixts>_<name> for room uploads. The code prefix is what the
// reaper's orphan check looks for.
const codePrefixLen = 6

// StoredName builds the on-disk name for a plain upload.
func StoredName(code, sanitized string) string {
	return fmt.Sprintf("%s_%s", code, sanitized)
}

// StampedName builds the on-disk name for a room upload. The unix timestamp
// keeps repeated uploads of the same filename from colliding.
func StampedName(code string, unixTime int64, sanitized string) string {
	return fmt.Sprintf("%s_%d_%s", code, unixTime, sanitized)
}

// MatchesPattern reports whether a filename has the structural shape of a
// stored name: a digit code prefix followed by an underscore. Files that
// fail this check are orphans as far as the reaper is concerned, whatever
// their age.
func MatchesPattern(name string) bool {
	if len(name) <= codePrefixLen || name[codePrefixLen] != '_' {
		return false
	}
	for _, r := range name[:codePrefixLen] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CodeOf extracts the access code prefix from a stored name. It returns an
// empty string when the name does not match the expected pattern.
func CodeOf(name string) string {
	if !MatchesPattern(name) {
		return ""
	}
	return name[:codePrefixLen]
}

// validStoredName rejects names that could address anything outside the
// upload directory.
func validStoredName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\\") && name != "." && name != ".."
}
