package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// ShortURLHash returns the first 8 hex characters of the MD5 digest of a URL.
// Used to keep derived filenames unique when truncating long URL paths.
func ShortURLHash(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:8]
}

// CalculateStringSHA256 computes the SHA-256 hash of a string.
func CalculateStringSHA256(content string) string {
	hash := sha256.New()
	hash.Write([]byte(content))
	return hex.EncodeToString(hash.Sum(nil))
}
