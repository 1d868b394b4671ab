package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes bounds names forwarded upstream and stored on records.
const MaxFileNameBytes = 200

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded name safe to echo in a multipart
// header, a log line or a database column. Separators become underscores,
// control characters and quotes are dropped, traversal is rejected and long
// names are shortened with their extension kept.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r == '"' || r == utf8.RuneError || unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrInvalidFileName
	}
	return truncateName(cleaned, MaxFileNameBytes), nil
}

func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= limit {
		ext = ""
	}
	stem := name[:limit-len(ext)]
	// never cut a multi-byte rune in half
	for !utf8.ValidString(stem) {
		stem = stem[:len(stem)-1]
	}
	return stem + ext
}
