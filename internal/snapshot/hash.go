package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashPrefix identifies the algorithm used for configuration hashes.
const HashPrefix = "sha256:"

// HashConfiguration returns the content hash of a configuration payload.
// The payload is canonicalized first so that cosmetic differences (line
// endings, trailing whitespace) never register as drift.
func HashConfiguration(configuration string) string {
	sum := sha256.Sum256([]byte(Canonicalize(configuration)))
	return HashPrefix + hex.EncodeToString(sum[:])
}

// Canonicalize normalizes a configuration payload: CRLF and bare CR become
// LF, trailing whitespace is stripped from each line, trailing blank lines
// are dropped, and a non-empty result ends with exactly one newline.
func Canonicalize(configuration string) string {
	s := strings.ReplaceAll(configuration, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
