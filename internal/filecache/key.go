package filecache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const cacheFileExt = ".json.zst"

// Sanitized names keep the distinctive tail of the source path; the hash
// suffix carries uniqueness, so truncation is safe.
const maxSanitizedLen = 96

var keyReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	" ", "_",
)

// cacheFileName derives the on-disk name for a source path: a sanitized,
// length-capped tail for readability plus a 16-hex-char SHA-256 prefix of
// the full path for collision resistance.
func cacheFileName(path string) string {
	sum := sha256.Sum256([]byte(path))

	base := keyReplacer.Replace(path)
	base = strings.Trim(base, "_")
	if len(base) > maxSanitizedLen {
		base = base[len(base)-maxSanitizedLen:]
	}
	return base + "-" + hex.EncodeToString(sum[:8]) + cacheFileExt
}
