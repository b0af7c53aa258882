// Package hashutil provides the content and key hashing primitives and
// filename sanitation shared by the store and the content pipeline.
package hashutil

import (
	"crypto/md5" //nolint:gosec // Dedup fingerprint, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// URLHash returns a 128-bit hex fingerprint of the given URL string.
//
// Design decision: We use MD5 because the hash is a dedup key, not a
// security boundary. A collision would at worst cause one page to be
// skipped as "already visited", which is tolerable crawl noise, and the
// 32-character digest keeps store keys and image filenames short.
func URLHash(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // See above
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the sha256 hex digest of the given content.
// Used for change detection on converted page text.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SanitizeFilename maps an arbitrary string to a safe filename component.
// The input is NFKC-folded first so visually equivalent Unicode forms
// sanitize to the same name, then every character outside [A-Za-z0-9._-] is
// replaced with an underscore.
func SanitizeFilename(name string) string {
	folded := norm.NFKC.String(name)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
