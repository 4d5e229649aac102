package utils

import (
	"fmt"
	"path"
	"strings"
)

// SanitizeFilename reduces an untrusted, user-supplied filename to a form
// that is safe to embed in an on-disk name. Any path components are
// discarded, disallowed characters become underscores, and leading dots are
// stripped so the result can never escape the upload directory or hide as a
// dotfile. An empty result falls back to "file".
func SanitizeFilename(name string) string {
	// Normalize Windows separators before taking the base name.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// FileTypeLabel derives a display-only type label from a filename's
// extension. It is descriptive, not authoritative.
func FileTypeLabel(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return "FILE"
	}
	return strings.ToUpper(ext)
}

// FormatBytes formats byte size in human-readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	suffixes := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), suffixes[exp])
}
